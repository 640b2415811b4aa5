package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chatterbox-hq/chatterbox/internal/api"
	"github.com/chatterbox-hq/chatterbox/internal/config"
	"github.com/chatterbox-hq/chatterbox/internal/models"
	"github.com/chatterbox-hq/chatterbox/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s, err := store.NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Close)

	cfg := &config.Config{
		Env:            "test",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}

	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), cfg, s))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeMessage(t *testing.T, resp *http.Response) models.Message {
	t.Helper()
	var msg models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	return msg
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body["error"]
}

func TestBanner(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "<h1>Chatterbox API</h1>")
}

func TestListEmptyIsArray(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/messages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "[]", strings.TrimSpace(string(body)))
}

func TestCreateThenList(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/messages", `{"body":"hi","username":"ana"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	created := decodeMessage(t, resp)
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, "hi", created.Body)
	require.Equal(t, "ana", created.Username)
	require.False(t, created.CreatedAt.IsZero())
	require.Nil(t, created.UpdatedAt)

	resp = do(t, http.MethodGet, srv.URL+"/messages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs []models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	require.Equal(t, created.ID, msgs[0].ID)
	require.Equal(t, "hi", msgs[0].Body)
}

func TestCreateMissingField(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/messages", `{"username":"bob"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing required fields: 'body' and 'username'", decodeError(t, resp))

	// Nothing was persisted
	resp = do(t, http.MethodGet, srv.URL+"/messages", "")
	var msgs []models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Empty(t, msgs)
}

func TestCreateEmptyField(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/messages", `{"body":"","username":"x"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Body and username cannot be empty.", decodeError(t, resp))
}

func TestCreateInvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/messages", `{"body":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListOrdering(t *testing.T) {
	srv := newTestServer(t)

	for i := 1; i <= 3; i++ {
		resp := do(t, http.MethodPost, srv.URL+"/messages",
			fmt.Sprintf(`{"body":"msg %d","username":"ana"}`, i))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := do(t, http.MethodGet, srv.URL+"/messages", "")
	var msgs []models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 3)
	for i := 1; i < len(msgs); i++ {
		require.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
}

func TestUpdateMessage(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/messages", `{"body":"hi","username":"ana"}`)
	created := decodeMessage(t, resp)

	resp = do(t, http.MethodPatch, fmt.Sprintf("%s/messages/%d", srv.URL, created.ID), `{"body":"hi there"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := decodeMessage(t, resp)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "hi there", updated.Body)
	require.Equal(t, "ana", updated.Username)
	require.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	require.NotNil(t, updated.UpdatedAt)
	require.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func TestUpdateUnknownID(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPatch, srv.URL+"/messages/999999", `{"body":"new text"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Message with id 999999 not found", decodeError(t, resp))
}

func TestUpdateMissingBodyField(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/messages", `{"body":"hi","username":"ana"}`)
	created := decodeMessage(t, resp)

	url := fmt.Sprintf("%s/messages/%d", srv.URL, created.ID)

	resp = do(t, http.MethodPatch, url, `{}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing 'body' field in request body for update", decodeError(t, resp))

	resp = do(t, http.MethodPatch, url, `{"body":""}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Message body cannot be empty.", decodeError(t, resp))
}

func TestDeleteMessage(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/messages", `{"body":"hi","username":"ana"}`)
	created := decodeMessage(t, resp)

	url := fmt.Sprintf("%s/messages/%d", srv.URL, created.ID)

	resp = do(t, http.MethodDelete, url, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, fmt.Sprintf("Message with id %d successfully deleted", created.ID), body["message"])

	// Second delete misses
	resp = do(t, http.MethodDelete, url, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteNonIntegerID(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodDelete, srv.URL+"/messages/abc", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRejectsWrongContentType(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/messages", strings.NewReader(`{"body":"hi","username":"ana"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t)

	huge := fmt.Sprintf(`{"body":"%s","username":"ana"}`, strings.Repeat("a", 9000))
	resp := do(t, http.MethodPost, srv.URL+"/messages", huge)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string                       `json:"status"`
		Checks map[string]map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "healthy", health.Status)
	require.Equal(t, "pass", health.Checks["database"]["status"])
}

func TestHealthDegraded(t *testing.T) {
	s, err := store.NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		Env:            "test",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	srv := httptest.NewServer(api.NewRouter(zerolog.Nop(), cfg, s))
	t.Cleanup(srv.Close)

	s.Close()

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health struct {
		Status string                       `json:"status"`
		Checks map[string]map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, "fail", health.Checks["database"]["status"])
}

// The lifecycle walked end to end: create, edit, delete, then edit again.
func TestMessageLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/messages", `{"body":"hi","username":"ana"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeMessage(t, resp)
	require.Equal(t, int64(1), created.ID)
	require.Nil(t, created.UpdatedAt)

	resp = do(t, http.MethodPatch, srv.URL+"/messages/1", `{"body":"hi there"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeMessage(t, resp)
	require.Equal(t, "hi there", updated.Body)
	require.NotNil(t, updated.UpdatedAt)

	resp = do(t, http.MethodDelete, srv.URL+"/messages/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "Message with id 1 successfully deleted", body["message"])

	resp = do(t, http.MethodPatch, srv.URL+"/messages/1", `{"body":"too late"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
