package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sms487/archive/internal/api/respond"
	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/services"
)

type MessageHandler struct {
	svc *services.MessageService
}

func NewMessageHandler(svc *services.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// GetMessages handles GET /get-sms.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	login := requestLogin(r)
	if login == "" {
		respond.WriteUnauthorized(w, "there is no login")
		return
	}

	deviceID := strings.TrimSpace(r.URL.Query().Get("device_id"))
	if deviceID == "All" {
		deviceID = ""
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		var err error
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respond.WriteBadRequest(w, "Incorrect limit")
			return
		}
	}

	applyFilters := r.URL.Query().Get("apply_filters") != "0"

	result, err := h.svc.GetMessages(r.Context(), services.GetMessagesRequest{
		Login:        login,
		DeviceID:     deviceID,
		Limit:        limit,
		ApplyFilters: applyFilters,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, result)
}

// AddMessages handles POST /add-sms. The body is one JSON object or a JSON
// list of them.
func (h *MessageHandler) AddMessages(w http.ResponseWriter, r *http.Request) {
	login := requestLogin(r)
	if login == "" {
		respond.WriteUnauthorized(w, "there is no login")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respond.WriteBadRequest(w, "cannot read body")
		return
	}

	items, err := decodeMessageItems(body)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	count, err := h.svc.AddMessages(r.Context(), login, items)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"status": "OK", "added": count})
}

// GetDeviceIDs handles GET /get-device-ids.
func (h *MessageHandler) GetDeviceIDs(w http.ResponseWriter, r *http.Request) {
	login := requestLogin(r)
	if login == "" {
		respond.WriteUnauthorized(w, "there is no login")
		return
	}

	ids, err := h.svc.DeviceIDs(r.Context(), login)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, ids)
}

func decodeMessageItems(body []byte) ([]model.MessageInput, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}

	if trimmed[0] == '[' {
		var items []model.MessageInput
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, errors.New("invalid json")
		}
		return items, nil
	}

	var item model.MessageInput
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, errors.New("invalid json")
	}
	return []model.MessageInput{item}, nil
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, strings.TrimPrefix(err.Error(), model.ErrValidation.Error()+": "))
	case errors.Is(err, model.ErrSecretUnavailable), errors.Is(err, model.ErrDownstream):
		respond.WriteBadGateway(w, "downstream unavailable")
	default:
		respond.WriteInternalError(w, "internal error")
	}
}
