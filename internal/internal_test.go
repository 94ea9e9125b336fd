package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctlAdmin "github.com/gdbrns/go-whatsapp-session-bot/internal/admin"
	ctlDevice "github.com/gdbrns/go-whatsapp-session-bot/internal/device"
	ctlIndex "github.com/gdbrns/go-whatsapp-session-bot/internal/index"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/registry"
	"github.com/gdbrns/go-whatsapp-session-bot/internal/supervisor"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/auth"
)

type fakeSupervisor struct {
	sweeps int
}

func (f *fakeSupervisor) Connect(ctx context.Context, number string) (supervisor.Result, error) {
	return supervisor.Result{Number: number, Code: "ABCD-EFGH"}, nil
}

func (f *fakeSupervisor) Active() []string { return []string{"94700000001"} }

func (f *fakeSupervisor) ConnectKnown(ctx context.Context) ([]supervisor.SweepResult, error) {
	f.sweeps++
	return []supervisor.SweepResult{{Number: "94700000001", Status: supervisor.SweepInitiated}}, nil
}

func (f *fakeSupervisor) Reconnect(ctx context.Context) ([]supervisor.SweepResult, error) {
	f.sweeps++
	return nil, supervisor.ErrNothingToReconnect
}

func newRoutedApp(keys auth.Keys) (*fiber.App, *fakeSupervisor) {
	sup := &fakeSupervisor{}
	app := fiber.New()
	Routes(app, Controllers{
		Keys:   keys,
		Index:  ctlIndex.New("BOT", registry.New()),
		Device: ctlDevice.New(sup),
		Admin:  ctlAdmin.New(ctlAdmin.Options{Keys: keys}),
	})
	return app, sup
}

func status(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRoutes_RootPairsWithNumber(t *testing.T) {
	app, _ := newRoutedApp(auth.Keys{})

	assert.Equal(t, http.StatusOK, status(t, app, httptest.NewRequest(http.MethodGet, "/", nil)))
	assert.Equal(t, http.StatusOK, status(t, app, httptest.NewRequest(http.MethodGet, "/?number=94700000001", nil)))
	assert.Equal(t, http.StatusOK, status(t, app, httptest.NewRequest(http.MethodGet, "/ping", nil)))
}

func TestRoutes_OperatorRoutesGuarded(t *testing.T) {
	app, sup := newRoutedApp(auth.Keys{AdminSecret: "secret"})

	assert.Equal(t, http.StatusUnauthorized, status(t, app, httptest.NewRequest(http.MethodGet, "/connect-all", nil)))
	assert.Equal(t, 0, sup.sweeps)

	req := httptest.NewRequest(http.MethodGet, "/connect-all", nil)
	req.Header.Set("X-Admin-Secret", "secret")
	assert.Equal(t, http.StatusOK, status(t, app, req))

	req = httptest.NewRequest(http.MethodGet, "/reconnect", nil)
	req.Header.Set("X-Admin-Secret", "secret")
	assert.Equal(t, http.StatusNotFound, status(t, app, req))
	assert.Equal(t, 2, sup.sweeps)
}

func TestRoutes_OperatorRoutesOpenWithoutSecret(t *testing.T) {
	app, _ := newRoutedApp(auth.Keys{})
	assert.Equal(t, http.StatusOK, status(t, app, httptest.NewRequest(http.MethodGet, "/connect-all", nil)))
}

func TestStartup_NothingToRestore(t *testing.T) {
	sup := &fakeSupervisor{}
	Startup(context.Background(), sup)
	assert.Equal(t, 1, sup.sweeps)
}

func TestSummarize(t *testing.T) {
	counts := summarize([]supervisor.SweepResult{
		{Status: supervisor.SweepInitiated},
		{Status: supervisor.SweepInitiated},
		{Status: supervisor.SweepFailed},
	})
	assert.Equal(t, map[string]int{supervisor.SweepInitiated: 2, supervisor.SweepFailed: 1}, counts)
}

func TestAddJob_InvalidSpecIsSkipped(t *testing.T) {
	c := cron.New(cron.WithSeconds())
	addJob(c, "bad", "not a spec", func() {})
	addJob(c, "disabled", "", func() {})
	addJob(c, "ok", "0 * * * * *", func() {})
	assert.Len(t, c.Entries(), 1)
}
