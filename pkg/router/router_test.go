package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: HttpErrorHandler})
	app.Use(HttpRequestID())
	app.Use(RecoveryMiddleware())
	app.Use(HttpRealIP())
	return app
}

func decode(t *testing.T, resp *http.Response) Response {
	t.Helper()
	defer resp.Body.Close()
	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestResponseHelpers_Envelope(t *testing.T) {
	app := newTestApp()
	app.Get("/ok", func(c *fiber.Ctx) error {
		return ResponseSuccessWithData(c, "", fiber.Map{"count": 1})
	})
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return ResponseConflict(c, "already connected", fiber.Map{"status": "already_connected"})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	body := decode(t, resp)
	assert.True(t, body.Status)
	assert.Equal(t, http.StatusOK, body.Code)
	assert.Equal(t, "OK", body.Message)
	assert.Empty(t, body.Error)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/conflict", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body = decode(t, resp)
	assert.False(t, body.Status)
	assert.Equal(t, "already connected", body.Error)
	assert.Equal(t, map[string]interface{}{"status": "already_connected"}, body.Data)
}

func TestHttpErrorHandler_FiberError(t *testing.T) {
	app := newTestApp()
	app.Get("/gone", func(c *fiber.Ctx) error {
		return fiber.NewError(http.StatusGone, "gone away")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, "gone away", decode(t, resp).Message)
}

func TestRecoveryMiddleware_Panic(t *testing.T) {
	app := newTestApp()
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "boom", decode(t, resp).Error)
}

func TestHttpRequestID_Propagates(t *testing.T) {
	app := newTestApp()
	app.Get("/id", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("request_id").(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-42", resp.Header.Get(fiber.HeaderXRequestID))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/id", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(fiber.HeaderXRequestID), 36)
}

func TestParseBodyLimit(t *testing.T) {
	assert.Equal(t, 8*1024*1024, parseBodyLimit("8M"))
	assert.Equal(t, 512*1024, parseBodyLimit("512k"))
	assert.Equal(t, 1024*1024, parseBodyLimit("lots"))
	assert.Equal(t, "/api", normalizeBaseURL(" api/ "))
	assert.Equal(t, "", normalizeBaseURL("/"))
}
