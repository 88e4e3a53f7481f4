package secrets

// StoreCredentials describes how to reach the document store at a point in
// time. Values are plain comparable fields so snapshots can be compared with
// == to detect rotation; once constructed a snapshot is never mutated.
type StoreCredentials struct {
	Host       string
	Port       int
	User       string
	Password   string
	AuthSource string
	DBName     string
	ReplicaSet string
	// TLSCert is the PEM-encoded trust anchor. Empty means unauthenticated
	// TLS is not attempted at all: local and dev deployments connect in
	// plain TCP.
	TLSCert string
}

// QueueCredentials describes how to reach the notification queue.
type QueueCredentials struct {
	QueueURL  string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// Redacted returns the snapshot fields safe to log. Secret material never
// leaves this package through logging.
func (c StoreCredentials) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"host":        c.Host,
		"port":        c.Port,
		"user":        c.User,
		"auth_source": c.AuthSource,
		"db_name":     c.DBName,
		"replica_set": c.ReplicaSet,
		"tls_cert":    c.TLSCert != "",
		"password":    mask(c.Password),
	}
}

// Redacted returns the snapshot fields safe to log.
func (c QueueCredentials) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"queue_url":  c.QueueURL,
		"endpoint":   c.Endpoint,
		"access_key": c.AccessKey,
		"secret_key": mask(c.SecretKey),
	}
}

func mask(v string) string {
	if v == "" {
		return ""
	}
	return "***"
}
