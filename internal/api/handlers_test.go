package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sms487/archive/internal/model"
	"github.com/sms487/archive/internal/services"
	"github.com/sms487/archive/internal/store/storetest"
)

func newTestRouter(fake *storetest.Fake) http.Handler {
	messages := services.NewMessageService(fake, nil, 0, zerolog.Nop())
	filters := services.NewFilterService(fake)
	return NewRouter(messages, filters, zerolog.Nop())
}

func doRequest(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func addMessage(t *testing.T, h http.Handler, login, body string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/add-sms", strings.NewReader(body))
	req.Header.Set(loginHeader, login)
	rec := doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

const messageBody = `{
	"message_type": "sms",
	"device_id": "phone1",
	"tel": "900",
	"date_time": "2026-08-28 10:00:00 +0000",
	"sms_date_time": "2026-08-28 10:00:00 +0000",
	"text": "hello"
}`

func TestGetMessagesRequiresLoginHeader(t *testing.T) {
	h := newTestRouter(storetest.New())

	rec := doRequest(t, h, httptest.NewRequest("GET", "/get-sms", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestGetMessagesReturnsStoredMessages(t *testing.T) {
	h := newTestRouter(storetest.New())
	addMessage(t, h, "alice", messageBody)

	req := httptest.NewRequest("GET", "/get-sms", nil)
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.DisplayMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Text)
	assert.Equal(t, "SMS", got[0].PrintableMessageType)
}

func TestGetMessagesDeviceAllMeansNoScope(t *testing.T) {
	h := newTestRouter(storetest.New())
	addMessage(t, h, "alice", messageBody)

	req := httptest.NewRequest("GET", "/get-sms?device_id=All", nil)
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.DisplayMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}

func TestGetMessagesRejectsBadLimit(t *testing.T) {
	h := newTestRouter(storetest.New())

	for _, limit := range []string{"abc", "-1"} {
		req := httptest.NewRequest("GET", "/get-sms?limit="+limit, nil)
		req.Header.Set(loginHeader, "alice")
		rec := doRequest(t, h, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Incorrect limit")
	}
}

func TestAddMessagesAcceptsSingleObjectAndList(t *testing.T) {
	h := newTestRouter(storetest.New())

	req := httptest.NewRequest("POST", "/add-sms", strings.NewReader(messageBody))
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "OK", resp["status"])
	assert.Equal(t, float64(1), resp["added"])

	second := strings.Replace(messageBody, "hello", "different text", 1)
	req = httptest.NewRequest("POST", "/add-sms", strings.NewReader("["+second+"]"))
	req.Header.Set(loginHeader, "alice")
	rec = doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAddMessagesRejectsInvalidBody(t *testing.T) {
	h := newTestRouter(storetest.New())

	for name, body := range map[string]string{
		"empty":       "",
		"not json":    "hello",
		"broken list": "[{]",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/add-sms", strings.NewReader(body))
			req.Header.Set(loginHeader, "alice")
			rec := doRequest(t, h, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAddMessagesValidationErrorMapsTo400(t *testing.T) {
	h := newTestRouter(storetest.New())

	body := strings.Replace(messageBody, `"tel": "900"`, `"tel": ""`, 1)
	req := httptest.NewRequest("POST", "/add-sms", strings.NewReader(body))
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, h, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// The sentinel prefix is stripped before the message reaches the client.
	assert.Equal(t, "There is no tel", resp["message"])
}

func TestDownstreamErrorMapsTo502(t *testing.T) {
	fake := storetest.New()
	fake.FindErr = model.ErrDownstream
	h := newTestRouter(fake)

	req := httptest.NewRequest("GET", "/get-sms", nil)
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, h, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "downstream unavailable")
}

func TestGetDeviceIDs(t *testing.T) {
	h := newTestRouter(storetest.New())
	addMessage(t, h, "alice", messageBody)

	req := httptest.NewRequest("GET", "/get-device-ids", nil)
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Equal(t, []string{"phone1"}, ids)
}

func TestSaveAndGetFilters(t *testing.T) {
	h := newTestRouter(storetest.New())

	form := url.Values{}
	form.Set("op:new", "and")
	form.Set("tel:new", "900")
	form.Set("action:new", "hide")
	req := httptest.NewRequest("POST", "/save-filters", strings.NewReader(form.Encode()))
	req.Header.Set(loginHeader, "alice")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest("GET", "/get-filters", nil)
	req.Header.Set(loginHeader, "alice")
	rec = doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []model.FilterRuleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "900", views[0].Tel)
	assert.NotEmpty(t, views[0].ID)
}

func TestExportFiltersSetsAttachmentHeader(t *testing.T) {
	h := newTestRouter(storetest.New())

	req := httptest.NewRequest("GET", "/export-filters", nil)
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="filters.json"`, rec.Header().Get("Content-Disposition"))
}

func TestImportFiltersRejectsNonListBody(t *testing.T) {
	h := newTestRouter(storetest.New())

	req := httptest.NewRequest("POST", "/import-filters", strings.NewReader(`{"id": "x"}`))
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "should be a list")
}

func TestImportFiltersRoundTrip(t *testing.T) {
	h := newTestRouter(storetest.New())

	form := url.Values{}
	form.Set("op:new", "or")
	form.Set("text:new", "sale")
	form.Set("action:new", "mark")
	req := httptest.NewRequest("POST", "/save-filters", strings.NewReader(form.Encode()))
	req.Header.Set(loginHeader, "alice")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, doRequest(t, h, req).Code)

	req = httptest.NewRequest("GET", "/export-filters", nil)
	req.Header.Set(loginHeader, "alice")
	exported := doRequest(t, h, req).Body.String()

	other := newTestRouter(storetest.New())
	req = httptest.NewRequest("POST", "/import-filters", strings.NewReader(exported))
	req.Header.Set(loginHeader, "alice")
	rec := doRequest(t, other, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req = httptest.NewRequest("GET", "/get-filters", nil)
	req.Header.Set(loginHeader, "alice")
	rec = doRequest(t, other, req)
	var views []model.FilterRuleView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "sale", views[0].Text)
}

func TestHealthAndRobots(t *testing.T) {
	h := newTestRouter(storetest.New())

	rec := doRequest(t, h, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, httptest.NewRequest("GET", "/robots.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Disallow: /")
}

func TestUnknownRouteAndWrongMethod(t *testing.T) {
	h := newTestRouter(storetest.New())

	rec := doRequest(t, h, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, h, httptest.NewRequest("DELETE", "/get-sms", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
