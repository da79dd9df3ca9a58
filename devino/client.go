// Package devino is the client SDK for the Devino push-notification and
// analytics backend. A Client maps application lifecycle and user actions
// onto backend API calls, confirms push delivery and opening, and retries
// failed sends in the background.
//
// Tracking calls are fire and forget: they never block, never fail the
// caller, and degrade to a log line when the SDK is not activated or no
// device token is registered.
package devino

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/devinotele/pushsdk-go/internal/api"
	"github.com/devinotele/pushsdk-go/internal/media"
	"github.com/devinotele/pushsdk-go/internal/store"
	"github.com/devinotele/pushsdk-go/internal/transport"
)

// DefaultAPIHost is used when the configuration leaves the host empty.
const DefaultAPIHost = "integrationapi.net"

// Platform action identifiers, as delivered by the host notification
// center. The default tap falls back to the action id carried inside the
// push payload; dismiss and custom button identifiers are reported
// verbatim.
const (
	ActionIdentifierDefault = "com.apple.UNNotificationDefaultActionIdentifier"
	ActionIdentifierDismiss = "com.apple.UNNotificationDismissActionIdentifier"
)

// ErrNotActivated is returned by calls that need a configuration before
// Activate has been performed.
var ErrNotActivated = store.ErrNotActivated

// Configuration is the activation payload. It is persisted to the shared
// store and survives process restarts until the next Activate.
type Configuration struct {
	// Key is the Devino API key sent with every request.
	Key string
	// ApplicationID identifies the registered application on the backend.
	ApplicationID string
	// AppGroup scopes the persisted settings container.
	AppGroup string
	// APIHost and APIPort locate the backend. Host defaults to
	// DefaultAPIHost, port 0 means the scheme default.
	APIHost string
	APIPort int
	// GeoIntervalMin is the coordinate polling interval in minutes;
	// 0 disables geo updates.
	GeoIntervalMin int
}

// Client is the SDK entry point. All methods are safe for concurrent use.
type Client struct {
	logger     zerolog.Logger
	store      *store.Store
	retry      *transport.Coordinator
	dispatcher *transport.Dispatcher
	fetcher    *media.Fetcher

	osVersion  string
	appVersion string
	language   string
	scheme     string
	authorized func() bool

	mu    sync.Mutex
	email string
	phone string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	httpClient *http.Client
	storageDir string
	mediaDir   string
	clock      transport.Clock
	osVersion  string
	appVersion string
	language   string
	scheme     string
	authorized func() bool
}

// WithLogger attaches a structured logger. Logging is off by default.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient overrides the HTTP client used for API calls and media
// downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithStorageDir places the persisted settings file into dir instead of
// the per-user config directory.
func WithStorageDir(dir string) Option {
	return func(o *options) { o.storageDir = dir }
}

// WithMediaDir places downloaded attachments into dir instead of the
// system temp directory.
func WithMediaDir(dir string) Option {
	return func(o *options) { o.mediaDir = dir }
}

// WithClock injects the clock driving the retry schedule.
func WithClock(c transport.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithDeviceInfo sets the device facts reported in request bodies.
func WithDeviceInfo(osVersion, appVersion, language string) Option {
	return func(o *options) {
		o.osVersion = osVersion
		o.appVersion = appVersion
		o.language = language
	}
}

// WithInsecureTransport switches from https to plain http, for local
// development against a stub backend.
func WithInsecureTransport() Option {
	return func(o *options) { o.scheme = "http" }
}

// WithAuthorizationCheck supplies the current push-permission state, used
// on app launch to reconcile the persisted subscription flag.
func WithAuthorizationCheck(f func() bool) Option {
	return func(o *options) { o.authorized = f }
}

// New builds a Client and loads any previously persisted configuration.
func New(opts ...Option) (*Client, error) {
	o := options{
		logger:     zerolog.Nop(),
		osVersion:  "unknown",
		appVersion: "1.0",
		language:   "en",
		scheme:     "https",
	}
	for _, opt := range opts {
		opt(&o)
	}

	dir := o.storageDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve storage dir: %w", err)
		}
		dir = filepath.Join(base, "devino")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	st, err := store.Open(dir)
	if err != nil {
		return nil, err
	}

	c := &Client{
		logger:     o.logger.With().Str("sdk", "devino").Logger(),
		store:      st,
		osVersion:  o.osVersion,
		appVersion: o.appVersion,
		language:   o.language,
		scheme:     o.scheme,
		authorized: o.authorized,
	}
	c.retry = transport.NewCoordinator(o.clock, c.logger)
	c.dispatcher = transport.NewDispatcher(o.httpClient, c.wireConfig, c.retry, c.logger)
	c.fetcher = &media.Fetcher{Client: o.httpClient, Dir: o.mediaDir, Logger: c.logger}
	return c, nil
}

// Activate stores the configuration. It must be called once per install;
// afterwards the configuration persists across restarts until the next
// Activate. The registered device token survives reactivation.
func (c *Client) Activate(cfg Configuration) error {
	if cfg.Key == "" {
		return errors.New("devino: configuration needs an api key")
	}
	if cfg.ApplicationID == "" {
		return errors.New("devino: configuration needs an application id")
	}
	host := cfg.APIHost
	if host == "" {
		host = DefaultAPIHost
	}
	err := c.store.Activate(store.Settings{
		APIKey:         cfg.Key,
		APIHost:        host,
		APIPort:        cfg.APIPort,
		ApplicationID:  cfg.ApplicationID,
		AppGroup:       cfg.AppGroup,
		GeoIntervalMin: cfg.GeoIntervalMin,
	})
	if err != nil {
		return err
	}
	if c.store.FirstLaunch() {
		c.logger.Info().Str("application_id", cfg.ApplicationID).Msg("first launch")
	}
	return nil
}

// RegisterToken records the raw device push token. The token is hex
// encoded for URL paths; an unchanged token is a no-op, and the very first
// registration pushes the current user data to the backend.
func (c *Client) RegisterToken(raw []byte) error {
	token := hex.EncodeToString(raw)
	st, ok := c.store.Snapshot()
	if !ok {
		c.logger.Warn().Msg("register token before activation")
		return ErrNotActivated
	}
	if st.DeviceToken == token {
		return nil
	}
	if err := c.store.SetDeviceToken(token); err != nil {
		return err
	}
	if st.DeviceToken == "" {
		c.mu.Lock()
		email, phone := c.email, c.phone
		c.mu.Unlock()
		c.submit(api.UserData{Email: email, Phone: phone})
	}
	return nil
}

// SetAPIHost persists a new endpoint host for all subsequent requests.
// In-flight retries keep the URL they were first dispatched with.
func (c *Client) SetAPIHost(host string) error {
	return c.store.SetAPIHost(host)
}

// Stop cancels all scheduled retries. Pending retry state is in memory
// only, so stopping (or a process restart) forgets it.
func (c *Client) Stop() {
	c.retry.Stop()
}

func (c *Client) wireConfig() (transport.Config, bool) {
	st, ok := c.store.Snapshot()
	if !ok {
		return transport.Config{}, false
	}
	return transport.Config{
		Scheme: c.scheme,
		Host:   st.APIHost,
		Port:   st.APIPort,
		APIKey: st.APIKey,
	}, true
}

// env assembles the device facts reported in request bodies. The
// subscription state is read live from the authorization callback when one
// is wired; the persisted flag is only a fallback.
func (c *Client) env(st store.Settings) api.Env {
	subscribed := false
	switch {
	case c.authorized != nil:
		subscribed = c.authorized()
	case st.Subscribed != nil:
		subscribed = *st.Subscribed
	}
	return api.Env{
		ApplicationID: st.ApplicationID,
		OSVersion:     c.osVersion,
		AppVersion:    c.appVersion,
		Language:      c.language,
		Subscribed:    subscribed,
	}
}

// submit resolves and dispatches op, honoring the drop rules: no
// activation and no token are silent no-ops, logged.
func (c *Client) submit(op api.Operation) {
	st, ok := c.store.Snapshot()
	if !ok {
		c.logger.Warn().Msg("sdk not activated, call dropped")
		return
	}
	req, ok := api.Resolve(op, st.DeviceToken, c.env(st))
	if !ok {
		c.logger.Info().Msg("no device token registered, call dropped")
		return
	}
	c.dispatcher.Send(req)
}
