// Package storetest provides an in-memory store.Store for tests. Its Find
// interprets the same query artifacts the Mongo implementation sends to the
// server, so service-level tests exercise the retrieval pipeline semantics
// without a database.
package storetest

import (
	"bytes"
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/store"
)

const dedupKeyTextLen = 128

// Fake is an in-memory store.Store.
type Fake struct {
	mu            sync.Mutex
	MessagesData  []*model.Message
	FiltersData   []*model.FilterRule
	InsertErr     error
	FindErr       error
	FilterListErr error
}

func New() *Fake { return &Fake{} }

func (f *Fake) Messages() store.Messages { return &fakeMessages{f} }
func (f *Fake) Filters() store.Filters   { return &fakeFilters{f} }

type fakeMessages struct {
	f *Fake
}

func (m *fakeMessages) Insert(ctx context.Context, msgs []*model.Message) ([]primitive.ObjectID, error) {
	m.f.mu.Lock()
	defer m.f.mu.Unlock()

	if m.f.InsertErr != nil {
		return nil, m.f.InsertErr
	}

	now := time.Now().UTC()
	ids := make([]primitive.ObjectID, 0, len(msgs))
	for _, msg := range msgs {
		clone := *msg
		clone.ID = primitive.NewObjectID()
		if clone.Created.IsZero() {
			clone.Created = now
		}
		m.f.MessagesData = append(m.f.MessagesData, &clone)
		ids = append(ids, clone.ID)
	}
	return ids, nil
}

func (m *fakeMessages) Find(ctx context.Context, q store.MessageQuery) ([]*model.Message, error) {
	m.f.mu.Lock()
	defer m.f.mu.Unlock()

	if m.f.FindErr != nil {
		return nil, m.f.FindErr
	}

	idSet := make(map[primitive.ObjectID]bool, len(q.IDs))
	for _, id := range q.IDs {
		idSet[id] = true
	}

	var matched []*model.Message
	for _, msg := range m.f.MessagesData {
		if msg.Login != q.Login {
			continue
		}
		if len(q.IDs) > 0 {
			if !idSet[msg.ID] {
				continue
			}
		} else if q.DeviceID != "" && msg.DeviceID != q.DeviceID {
			continue
		}
		if q.Exclusion != nil && !evalQuery(q.Exclusion, msg) {
			continue
		}
		matched = append(matched, msg)
	}

	sortMessages(matched)
	if len(matched) > q.Limit*10 {
		matched = matched[:q.Limit*10]
	}

	// Group to one representative per (device, tel, text prefix); the first
	// in sort order is the most recent occurrence.
	seen := make(map[[3]string]bool)
	var grouped []*model.Message
	for _, msg := range matched {
		key := [3]string{msg.DeviceID, msg.Tel, textPrefix(msg.Text)}
		if seen[key] {
			continue
		}
		seen[key] = true
		grouped = append(grouped, msg)
	}

	sortMessages(grouped)
	if len(grouped) > q.Limit {
		grouped = grouped[:q.Limit]
	}

	result := make([]*model.Message, 0, len(grouped))
	for _, msg := range grouped {
		clone := *msg
		if q.Mark != nil {
			marked := evalExpr(q.Mark, msg)
			clone.Marked = &marked
		}
		result = append(result, &clone)
	}
	return result, nil
}

func (m *fakeMessages) DeviceIDs(ctx context.Context, login string) ([]string, error) {
	m.f.mu.Lock()
	defer m.f.mu.Unlock()

	seen := make(map[string]bool)
	var ids []string
	for _, msg := range m.f.MessagesData {
		if msg.Login == login && !seen[msg.DeviceID] {
			seen[msg.DeviceID] = true
			ids = append(ids, msg.DeviceID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *fakeMessages) EnsureIndexes(ctx context.Context) error { return nil }

type fakeFilters struct {
	f *Fake
}

func (ff *fakeFilters) List(ctx context.Context, login string) ([]*model.FilterRule, error) {
	ff.f.mu.Lock()
	defer ff.f.mu.Unlock()

	if ff.f.FilterListErr != nil {
		return nil, ff.f.FilterListErr
	}

	var rules []*model.FilterRule
	for _, r := range ff.f.FiltersData {
		if r.Login == login {
			clone := *r
			rules = append(rules, &clone)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Created.After(rules[j].Created)
	})
	return rules, nil
}

func (ff *fakeFilters) Insert(ctx context.Context, r *model.FilterRule) error {
	ff.f.mu.Lock()
	defer ff.f.mu.Unlock()

	clone := *r
	if clone.ID.IsZero() {
		clone.ID = primitive.NewObjectID()
	}
	if clone.Created.IsZero() {
		clone.Created = time.Now().UTC()
	}
	r.ID = clone.ID
	ff.f.FiltersData = append(ff.f.FiltersData, &clone)
	return nil
}

func (ff *fakeFilters) Update(ctx context.Context, r *model.FilterRule) error {
	ff.f.mu.Lock()
	defer ff.f.mu.Unlock()

	for _, existing := range ff.f.FiltersData {
		if existing.Login == r.Login && existing.ID == r.ID {
			existing.Op = r.Op
			existing.Tel = r.Tel
			existing.DeviceID = r.DeviceID
			existing.Text = r.Text
			existing.Action = r.Action
			return nil
		}
	}
	return nil
}

func (ff *fakeFilters) Upsert(ctx context.Context, r *model.FilterRule) error {
	ff.f.mu.Lock()
	for _, existing := range ff.f.FiltersData {
		if existing.Login == r.Login && existing.ID == r.ID {
			ff.f.mu.Unlock()
			return ff.Update(ctx, r)
		}
	}
	ff.f.mu.Unlock()
	return ff.Insert(ctx, r)
}

func (ff *fakeFilters) Delete(ctx context.Context, login string, id primitive.ObjectID) error {
	ff.f.mu.Lock()
	defer ff.f.mu.Unlock()

	kept := ff.f.FiltersData[:0]
	for _, r := range ff.f.FiltersData {
		if !(r.Login == login && r.ID == id) {
			kept = append(kept, r)
		}
	}
	ff.f.FiltersData = kept
	return nil
}

func (ff *fakeFilters) EnsureIndexes(ctx context.Context) error { return nil }

// sortMessages applies the pipeline's total order: date_time descending,
// device_id ascending, identity descending.
func sortMessages(msgs []*model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i], msgs[j]
		if a.DateTime != b.DateTime {
			return a.DateTime > b.DateTime
		}
		if a.DeviceID != b.DeviceID {
			return a.DeviceID < b.DeviceID
		}
		return bytes.Compare(a.ID[:], b.ID[:]) > 0
	})
}

func textPrefix(text string) string {
	runes := []rune(text)
	if len(runes) > dedupKeyTextLen {
		runes = runes[:dedupKeyTextLen]
	}
	return string(runes)
}

// evalQuery interprets a find-style predicate against one document.
// Multiple keys in one document conjoin.
func evalQuery(q bson.M, msg *model.Message) bool {
	for key, value := range q {
		switch key {
		case "$nor":
			for _, sub := range value.(bson.A) {
				if evalQuery(sub.(bson.M), msg) {
					return false
				}
			}
		case "$and":
			for _, sub := range value.(bson.A) {
				if !evalQuery(sub.(bson.M), msg) {
					return false
				}
			}
		case "$or":
			any := false
			for _, sub := range value.(bson.A) {
				if evalQuery(sub.(bson.M), msg) {
					any = true
					break
				}
			}
			if !any {
				return false
			}
		default:
			field := fieldValue(key, msg)
			switch cond := value.(type) {
			case bson.M:
				pattern := cond["$regex"].(string)
				if !regexp.MustCompile(pattern).MatchString(field) {
					return false
				}
			case string:
				if field != cond {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

// evalExpr interprets an aggregation expression against one document.
func evalExpr(e bson.M, msg *model.Message) bool {
	for key, value := range e {
		switch key {
		case "$and":
			for _, sub := range value.(bson.A) {
				if !evalExpr(sub.(bson.M), msg) {
					return false
				}
			}
			return true
		case "$or":
			for _, sub := range value.(bson.A) {
				if evalExpr(sub.(bson.M), msg) {
					return true
				}
			}
			return false
		case "$eq":
			args := value.(bson.A)
			return fieldRef(args[0].(string), msg) == args[1].(string)
		case "$regexMatch":
			args := value.(bson.M)
			field := fieldRef(args["input"].(string), msg)
			return regexp.MustCompile(args["regex"].(string)).MatchString(field)
		}
	}
	return false
}

func fieldRef(ref string, msg *model.Message) string {
	if len(ref) > 0 && ref[0] == '$' {
		return fieldValue(ref[1:], msg)
	}
	return ref
}

func fieldValue(name string, msg *model.Message) string {
	switch name {
	case "login":
		return msg.Login
	case "device_id":
		return msg.DeviceID
	case "tel":
		return msg.Tel
	case "text":
		return msg.Text
	case "message_type":
		return msg.MessageType
	case "date_time":
		return msg.DateTime
	case "sms_date_time":
		return msg.SmsDateTime
	}
	return ""
}
