package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/store"

	sessionstore "github.com/gdbrns/go-whatsapp-session-bot/internal/store"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/auth"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/whatsapp"
)

type fakeSessions struct {
	active  []string
	deleted []string
}

func (f *fakeSessions) Active() []string { return f.active }

func (f *fakeSessions) Delete(_ context.Context, number string) error {
	if number == "x" {
		return supervisor.ErrInvalidNumber
	}
	f.deleted = append(f.deleted, number)
	return nil
}

type fakeRecords []sessionstore.Record

func (f fakeRecords) List(context.Context) ([]sessionstore.Record, error) { return f, nil }

type fakeNumbers []string

func (f fakeNumbers) Load() ([]string, error) { return f, nil }

type fakeVersions struct {
	err error
}

func (f fakeVersions) Status() whatsapp.VersionStatus {
	return whatsapp.VersionStatus{CurrentVersion: store.WAVersionContainer{2, 3000, 1}}
}

func (f fakeVersions) Refresh(context.Context, bool) (whatsapp.VersionStatus, bool, error) {
	return f.Status(), true, f.err
}

var testKeys = auth.Keys{AdminSecret: "secret", JWTSecret: "0123456789abcdef0123456789abcdef"}

func newApp(opts Options) (*fiber.App, *fakeSessions) {
	sessions := &fakeSessions{active: []string{"94700000001"}}
	opts.Keys = testKeys
	opts.Sessions = sessions
	opts.Records = fakeRecords{{Number: "94700000001"}, {Number: "94700000002"}}
	opts.Numbers = fakeNumbers{"94700000001", "94700000002", "94700000003"}
	if opts.Versions == nil {
		opts.Versions = fakeVersions{}
	}
	opts.Started = time.Now().Add(-time.Hour)

	h := New(opts)
	app := fiber.New()
	app.Get("/admin/stats", h.GetStats)
	app.Delete("/admin/sessions/:number", h.DeleteSession)
	app.Get("/admin/whatsapp/version", h.GetWhatsAppWebVersion)
	app.Post("/admin/whatsapp/version/refresh", h.RefreshWhatsAppWebVersion)
	app.Get("/admin/token", h.IssueToken)
	return app, sessions
}

func call(t *testing.T, app *fiber.App, method, target string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestGetStats(t *testing.T) {
	app, _ := newApp(Options{})

	code, body := call(t, app, http.MethodGet, "/admin/stats")
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Data ResponseStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Data.ActiveSessions)
	assert.Equal(t, 2, out.Data.StoredSessions)
	assert.Equal(t, 3, out.Data.KnownNumbers)
	assert.Equal(t, "1h0m0s", out.Data.Uptime)
}

func TestDeleteSession(t *testing.T) {
	app, sessions := newApp(Options{})

	code, _ := call(t, app, http.MethodDelete, "/admin/sessions/94700000001")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"94700000001"}, sessions.deleted)

	code, _ = call(t, app, http.MethodDelete, "/admin/sessions/x")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWhatsAppWebVersion(t *testing.T) {
	app, _ := newApp(Options{})
	code, _ := call(t, app, http.MethodGet, "/admin/whatsapp/version")
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, app, http.MethodPost, "/admin/whatsapp/version/refresh?force=true")
	assert.Equal(t, http.StatusOK, code)

	failing, _ := newApp(Options{Versions: fakeVersions{err: errors.New("unreachable")}})
	code, _ = call(t, failing, http.MethodPost, "/admin/whatsapp/version/refresh")
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestIssueToken(t *testing.T) {
	app, _ := newApp(Options{})

	code, body := call(t, app, http.MethodGet, "/admin/token?subject=ops")
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))

	claims, err := auth.ValidateOperatorToken(testKeys, out.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}
