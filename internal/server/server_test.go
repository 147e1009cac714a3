package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ogulcanaydogan/listing-alerts/internal/server"
	"github.com/ogulcanaydogan/listing-alerts/pkg/alerting"
	"github.com/ogulcanaydogan/listing-alerts/pkg/dispatch"
	"github.com/ogulcanaydogan/listing-alerts/pkg/model"
	"github.com/ogulcanaydogan/listing-alerts/pkg/notify"
	"github.com/ogulcanaydogan/listing-alerts/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDispatcher struct {
	listing model.Listing
	resp    *dispatch.Response
	err     error
}

func (s *stubDispatcher) Dispatch(_ context.Context, l model.Listing) (*dispatch.Response, error) {
	s.listing = l
	return s.resp, s.err
}

func setupServer(t *testing.T, d server.ListingDispatcher) (*server.Server, *storage.SQLite) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath, true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := alerting.NewService(store, nil, 0, logger)
	if d == nil {
		d = &stubDispatcher{resp: &dispatch.Response{Success: true}}
	}
	return server.NewServer(svc, d, logger), store
}

func do(t *testing.T, srv *server.Server, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if owner != "" {
		req.Header.Set(server.OwnerHeader, owner)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

type alertEnvelope struct {
	Alert model.Alert `json:"alert"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func createAlert(t *testing.T, srv *server.Server, owner, body string) model.Alert {
	t.Helper()
	w := do(t, srv, "POST", "/api/v1/alerts", owner, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var env alertEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env.Alert
}

func TestServer_Health(t *testing.T) {
	srv, _ := setupServer(t, nil)

	w := do(t, srv, "GET", "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	err := json.NewDecoder(w.Body).Decode(&resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_CreateAlert(t *testing.T) {
	srv, _ := setupServer(t, nil)

	a := createAlert(t, srv, "owner-1", `{"categories":["cleaning","repair","moving"],"locations":["Sofia"]}`)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "owner-1", a.OwnerID)
	assert.Equal(t, "Cleaning, Repair +1 · Sofia", a.Label)
	assert.True(t, a.Channels.EmailEnabled)
	assert.Equal(t, model.FrequencyImmediate, a.Frequency)
	assert.Nil(t, a.Budget.Max)
}

func TestServer_CreateAlert_ValidationError(t *testing.T) {
	srv, _ := setupServer(t, nil)

	tests := []struct {
		name  string
		owner string
		body  string
	}{
		{"no filters", "owner-1", `{}`},
		{"missing owner", "", `{"categories":["cleaning"]}`},
		{"bad json", "owner-1", `{"categories":`},
		{"max below min", "owner-1", `{"minBudget":100,"maxBudget":10}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/api/v1/alerts", tt.owner, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body errorBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, "validation_error", body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestServer_CreateAlert_Quota(t *testing.T) {
	srv, _ := setupServer(t, nil)

	for i := 0; i < 10; i++ {
		createAlert(t, srv, "owner-1", fmt.Sprintf(`{"keywords":["kw%d"]}`, i))
	}

	w := do(t, srv, "POST", "/api/v1/alerts", "owner-1", `{"keywords":["one-too-many"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "quota_exceeded", body.Error)
}

func TestServer_ListAlerts(t *testing.T) {
	srv, _ := setupServer(t, nil)
	createAlert(t, srv, "owner-1", `{"categories":["cleaning"]}`)
	createAlert(t, srv, "owner-2", `{"categories":["moving"]}`)

	w := do(t, srv, "GET", "/api/v1/alerts", "owner-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Alerts []model.Alert `json:"alerts"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Alerts, 1)
	assert.Equal(t, []string{"cleaning"}, resp.Alerts[0].Categories)

	w = do(t, srv, "GET", "/api/v1/alerts", "owner-3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alerts":[]}`, w.Body.String())
}

func TestServer_GetAlert_Scoped(t *testing.T) {
	srv, _ := setupServer(t, nil)
	a := createAlert(t, srv, "owner-1", `{"categories":["cleaning"]}`)

	w := do(t, srv, "GET", "/api/v1/alerts/"+a.ID, "owner-1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	foreign := do(t, srv, "GET", "/api/v1/alerts/"+a.ID, "owner-2", "")
	missing := do(t, srv, "GET", "/api/v1/alerts/nope", "owner-2", "")
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, missing.Body.String(), foreign.Body.String())
}

func TestServer_UpdateAlert(t *testing.T) {
	srv, _ := setupServer(t, nil)
	a := createAlert(t, srv, "owner-1", `{"categories":["cleaning"],"minBudget":10,"maxBudget":100}`)

	w := do(t, srv, "PATCH", "/api/v1/alerts/"+a.ID, "owner-1", `{"maxBudget":null,"active":false,"label":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env alertEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.Nil(t, env.Alert.Budget.Max)
	assert.False(t, env.Alert.Active)
	assert.Equal(t, "Cleaning · from 10", env.Alert.Label)

	w = do(t, srv, "PATCH", "/api/v1/alerts/"+a.ID, "owner-1", `{"maxBudget":250}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	require.NotNil(t, env.Alert.Budget.Max)
	assert.Equal(t, 250.0, *env.Alert.Budget.Max)
}

func TestServer_UpdateAlert_ForeignOwner(t *testing.T) {
	srv, _ := setupServer(t, nil)
	a := createAlert(t, srv, "owner-1", `{"categories":["cleaning"]}`)

	w := do(t, srv, "PATCH", "/api/v1/alerts/"+a.ID, "owner-2", `{"active":false}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, "PATCH", "/api/v1/alerts/"+a.ID, "", `{"active":false}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_DeleteAlert(t *testing.T) {
	srv, _ := setupServer(t, nil)
	a := createAlert(t, srv, "owner-1", `{"categories":["cleaning"]}`)

	assert.Equal(t, http.StatusNotFound, do(t, srv, "DELETE", "/api/v1/alerts/"+a.ID, "owner-2", "").Code)

	w := do(t, srv, "DELETE", "/api/v1/alerts/"+a.ID, "owner-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, srv, "DELETE", "/api/v1/alerts/"+a.ID, "owner-1", "").Code)
}

func TestServer_Dispatch(t *testing.T) {
	stub := &stubDispatcher{resp: &dispatch.Response{Success: true, Notified: 2, MatchingAlerts: 3, Message: "ok"}}
	srv, _ := setupServer(t, stub)

	w := do(t, srv, "POST", "/api/v1/dispatch", "",
		`{"listingId":"l1","title":"Fix sink","category":"repair","location":"Varna","budget":80}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"notified":2,"matchingAlerts":3,"message":"ok"}`, w.Body.String())
	assert.Equal(t, model.Listing{ID: "l1", Title: "Fix sink", Category: "repair", Location: "Varna", Budget: 80}, stub.listing)
}

func TestServer_Dispatch_Errors(t *testing.T) {
	stub := &stubDispatcher{err: &alerting.ValidationError{Field: "title", Message: "Listing title is required."}}
	srv, _ := setupServer(t, stub)

	w := do(t, srv, "POST", "/api/v1/dispatch", "", `{"listingId":"l1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	stub.err = errors.New("list candidate alerts: disk I/O error")
	w = do(t, srv, "POST", "/api/v1/dispatch", "", `{"listingId":"l1"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "internal_error", body.Error)
	assert.NotContains(t, body.Message, "disk")
}

type countingChannel struct {
	name  string
	count int
}

func (c *countingChannel) Name() string { return c.name }

func (c *countingChannel) Send(context.Context, notify.Message) error {
	c.count++
	return nil
}

func TestServer_DispatchEndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "e2e.db")
	store, err := storage.NewSQLite(dbPath, true)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	email := "owner@example.com"
	require.NoError(t, store.UpsertUser(t.Context(), &model.User{ID: "owner-1", Email: &email}))

	ch := &countingChannel{name: model.ChannelEmail}
	orch := dispatch.NewOrchestrator(store,
		dispatch.NewDispatcher(store, []notify.Channel{ch}, dispatch.Options{Workers: 1}, logger),
		dispatch.NewStatsUpdater(store, 0, logger),
		logger,
	)
	srv := server.NewServer(alerting.NewService(store, nil, 0, logger), orch, logger)

	createAlert(t, srv, "owner-1", `{"categories":["cleaning"]}`)
	createAlert(t, srv, "owner-1", `{"categories":["cleaning"],"keywords":["deep"]}`)

	w := do(t, srv, "POST", "/api/v1/dispatch", "",
		`{"listingId":"l1","title":"Deep clean","category":"cleaning","location":"Sofia","budget":50}`)
	require.Equal(t, http.StatusOK, w.Code)
	orch.Wait()

	var resp dispatch.Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.MatchingAlerts)
	assert.Equal(t, 2, resp.Notified)
	assert.Equal(t, 2, ch.count)
}
