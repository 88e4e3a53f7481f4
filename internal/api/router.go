package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/sms487/archive/internal/api/recovery"
	"github.com/sms487/archive/internal/api/respond"
	"github.com/sms487/archive/internal/services"
)

// NewRouter wires HTTP routes to handlers. Authentication is enforced by an
// external component; handlers only read the login it resolved.
func NewRouter(messages *services.MessageService, filters *services.FilterService, log zerolog.Logger) http.Handler {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	messageHandler := NewMessageHandler(messages)
	root.HandleFunc("/get-sms", messageHandler.GetMessages).Methods("GET")
	root.HandleFunc("/add-sms", messageHandler.AddMessages).Methods("POST")
	root.HandleFunc("/get-device-ids", messageHandler.GetDeviceIDs).Methods("GET")

	filterHandler := NewFilterHandler(filters)
	root.HandleFunc("/get-filters", filterHandler.GetFilters).Methods("GET")
	root.HandleFunc("/save-filters", filterHandler.SaveFilters).Methods("POST")
	root.HandleFunc("/export-filters", filterHandler.ExportFilters).Methods("GET")
	root.HandleFunc("/import-filters", filterHandler.ImportFilters).Methods("POST")

	healthHandler := NewHealthHandler()
	root.HandleFunc("/health", healthHandler.CheckHealth).Methods("GET")
	root.HandleFunc("/robots.txt", Robots).Methods("GET")

	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.WriteError(w, http.StatusNotFound, "Not found")
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.WriteError(w, http.StatusMethodNotAllowed, "Method is not allowed")
	})

	return AccessLog(log, root)
}
