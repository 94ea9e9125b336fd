package internal

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/auth"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/router"

	ctlAdmin "github.com/gdbrns/go-whatsapp-session-bot/internal/admin"
	ctlDevice "github.com/gdbrns/go-whatsapp-session-bot/internal/device"
	ctlIndex "github.com/gdbrns/go-whatsapp-session-bot/internal/index"
	ctlSettings "github.com/gdbrns/go-whatsapp-session-bot/internal/settings"
	ctlUser "github.com/gdbrns/go-whatsapp-session-bot/internal/user"
)

// Controllers are the route handlers mounted by Routes.
type Controllers struct {
	Keys     auth.Keys
	Index    *ctlIndex.Handler
	Device   *ctlDevice.Handler
	Settings *ctlSettings.Handler
	User     *ctlUser.Handler
	Admin    *ctlAdmin.Handler
}

func Routes(app *fiber.App, ctl Controllers) {
	base := router.BaseURL

	// Route for Index
	// ---------------------------------------------
	if base == "" {
		app.Get("/", indexOrPair(ctl))
	} else {
		app.Get(base, indexOrPair(ctl))
		app.Get(base+"/", indexOrPair(ctl))
	}
	cached := router.HttpCacheInMemory(router.CacheTTLSeconds)
	app.Get(base+"/ping", cached, ctl.Index.Ping)

	// Route for Sessions
	// ---------------------------------------------
	app.Get(base+"/pair", ctl.Device.Pair)
	app.Post(base+"/pair", ctl.Device.Pair)
	app.Get(base+"/active", cached, ctl.Device.Active)

	operator := auth.OperatorAuth(ctl.Keys)
	app.Get(base+"/connect-all", operator, ctl.Device.ConnectAll)
	app.Get(base+"/reconnect", operator, ctl.Device.Reconnect)

	// Route for Config and Profile
	// ---------------------------------------------
	app.Get(base+"/update-config", ctl.Settings.UpdateConfig)
	app.Get(base+"/verify-otp", ctl.Settings.VerifyOTP)
	app.Get(base+"/getabout", ctl.User.GetAbout)

	// ADMIN ROUTES
	// ---------------------------------------------
	app.Get(base+"/admin/token", auth.AdminAuth(ctl.Keys), ctl.Admin.IssueToken)
	app.Get(base+"/admin/stats", operator, ctl.Admin.GetStats)
	app.Delete(base+"/admin/sessions/:number", operator, ctl.Admin.DeleteSession)
	app.Get(base+"/admin/whatsapp/version", operator, ctl.Admin.GetWhatsAppWebVersion)
	app.Post(base+"/admin/whatsapp/version/refresh", operator, ctl.Admin.RefreshWhatsAppWebVersion)
}

// indexOrPair serves pairing at the root when a number is given.
func indexOrPair(ctl Controllers) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("number") != "" {
			return ctl.Device.Pair(c)
		}
		return ctl.Index.Index(c)
	}
}
