// Package whatsapp implements the session contracts on top of whatsmeow.
package whatsapp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCompanionReg"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"

	"github.com/gdbrns/go-whatsapp-session-bot/internal/session"
	"github.com/gdbrns/go-whatsapp-session-bot/pkg/log"
)

var ErrNoCredentials = errors.New("device is not paired")

// credentials is the blob persisted in the Session Record. The key material
// itself stays in the sqlstore tables.
type credentials struct {
	JID      string `json:"jid"`
	PushName string `json:"pushName,omitempty"`
}

func encodeCredentials(device *store.Device) ([]byte, error) {
	if device == nil || device.ID == nil {
		return nil, ErrNoCredentials
	}
	return json.Marshal(credentials{JID: device.ID.String(), PushName: device.PushName})
}

func decodeCredentials(blob []byte) (types.JID, error) {
	var creds credentials
	if err := json.Unmarshal(blob, &creds); err != nil {
		return types.EmptyJID, fmt.Errorf("decode credentials: %w", err)
	}
	if creds.JID == "" {
		return types.EmptyJID, ErrNoCredentials
	}
	return types.ParseJID(creds.JID)
}

// sqlstoreDialect maps a database/sql driver name to the sqlstore dialect.
func sqlstoreDialect(driver string) string {
	switch driver {
	case "pgx", "postgres", "postgresql":
		return "postgres"
	default:
		return "sqlite3"
	}
}

// NewDatastore opens the whatsmeow device container on db and upgrades its
// schema.
func NewDatastore(ctx context.Context, db *sql.DB, driver string) (*sqlstore.Container, error) {
	container := sqlstore.NewWithDB(db, sqlstoreDialect(driver), log.WhatsApp("Database"))
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("upgrade device store: %w", err)
	}
	return container, nil
}

type Options struct {
	ProxyURL string
	// Version pins the advertised client version; zero values keep the
	// library default or the refreshed one.
	VersionMajor, VersionMinor, VersionPatch int
}

// Dialer creates whatsmeow clients backed by a shared device container.
type Dialer struct {
	container *sqlstore.Container
	opts      Options
}

func NewDialer(container *sqlstore.Container, opts Options) *Dialer {
	store.DeviceProps.Os = proto.String(runtime.GOOS)
	store.DeviceProps.PlatformType = waCompanionReg.DeviceProps_CHROME.Enum()
	store.DeviceProps.RequireFullSync = proto.Bool(false)

	if opts.VersionMajor > 0 {
		store.DeviceProps.Version.Primary = proto.Uint32(uint32(opts.VersionMajor))
		store.DeviceProps.Version.Secondary = proto.Uint32(uint32(opts.VersionMinor))
		store.DeviceProps.Version.Tertiary = proto.Uint32(uint32(opts.VersionPatch))
	}

	return &Dialer{container: container, opts: opts}
}

func (d *Dialer) device(ctx context.Context, number string, blob []byte) (*store.Device, error) {
	if len(blob) == 0 {
		return d.container.NewDevice(), nil
	}

	jid, err := decodeCredentials(blob)
	if err != nil {
		log.Session(number, "whatsapp.device").WithError(err).Warn("Ignoring unreadable credentials, starting a new device")
		return d.container.NewDevice(), nil
	}
	device, err := d.container.GetDevice(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}
	if device == nil {
		log.Session(number, "whatsapp.device").Warn("Stored credentials have no device state, starting a new device")
		return d.container.NewDevice(), nil
	}
	return device, nil
}

func (d *Dialer) Dial(ctx context.Context, number string, blob []byte, listener session.Listener) (session.Conn, error) {
	device, err := d.device(ctx, number, blob)
	if err != nil {
		return nil, err
	}

	client := whatsmeow.NewClient(device, log.WhatsApp("Client/"+log.Mask(number)))
	if d.opts.ProxyURL != "" {
		if err := client.SetProxyAddress(d.opts.ProxyURL); err != nil {
			return nil, fmt.Errorf("set proxy: %w", err)
		}
	}
	// Reconnects are owned by the supervisor.
	client.EnableAutoReconnect = false
	client.AutoTrustIdentity = true

	conn := &Conn{number: number, client: client, listener: listener}
	client.AddEventHandler(conn.handleEvent)
	return conn, nil
}

// Conn is one whatsmeow client bound to a bot number.
type Conn struct {
	number   string
	client   *whatsmeow.Client
	listener session.Listener
}

func (c *Conn) Connect(ctx context.Context) error {
	return c.client.Connect()
}

func (c *Conn) Registered() bool {
	return c.client.Store.ID != nil
}

func (c *Conn) PairCode(ctx context.Context, number string) (string, error) {
	return c.client.PairPhone(ctx, number, true, whatsmeow.PairClientChrome, "Chrome ("+runtime.GOOS+")")
}

func (c *Conn) Credentials() ([]byte, error) {
	return encodeCredentials(c.client.Store)
}

func (c *Conn) SelfChat() string {
	if c.client.Store.ID == nil {
		return ""
	}
	return c.client.Store.ID.ToNonAD().String()
}

func (c *Conn) Disconnect() {
	c.client.Disconnect()
}

func (c *Conn) Logout(ctx context.Context) error {
	return c.client.Logout(ctx)
}

func (c *Conn) Purge(ctx context.Context) error {
	if c.client.Store.ID == nil {
		return nil
	}
	return c.client.Store.Delete(ctx)
}

func (c *Conn) ready() error {
	if !c.client.IsConnected() || !c.client.IsLoggedIn() {
		return session.ErrNotConnected
	}
	return nil
}

func (c *Conn) JoinGroup(ctx context.Context, inviteCode string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	gid, err := c.client.JoinGroupWithLink(ctx, inviteCode)
	if err != nil {
		return "", err
	}
	return gid.String(), nil
}

func (c *Conn) FollowNewsletter(ctx context.Context, jid string) error {
	if err := c.ready(); err != nil {
		return err
	}
	target, err := types.ParseJID(jid)
	if err != nil || target.Server != types.NewsletterServer {
		return fmt.Errorf("invalid newsletter jid %q", jid)
	}
	return c.client.FollowNewsletter(ctx, target)
}

func (c *Conn) UserInfo(ctx context.Context, number string) (session.UserInfo, error) {
	if err := c.ready(); err != nil {
		return session.UserInfo{}, err
	}

	found, err := c.client.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return session.UserInfo{}, err
	}
	if len(found) == 0 || !found[0].IsIn {
		return session.UserInfo{}, session.ErrNotOnWhatsApp
	}

	jid := found[0].JID
	infos, err := c.client.GetUserInfo(ctx, []types.JID{jid})
	if err != nil {
		return session.UserInfo{}, err
	}
	info := infos[jid]
	return session.UserInfo{
		Number:     jid.User,
		About:      info.Status,
		IsBusiness: info.VerifiedName != nil,
		Devices:    len(info.Devices),
	}, nil
}
