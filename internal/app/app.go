package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/config"
	"github.com/five82/roster/internal/listing"
	"github.com/five82/roster/internal/logging"
	"github.com/five82/roster/internal/prefs"
	"github.com/five82/roster/internal/query"
	"github.com/five82/roster/internal/session"
	"github.com/five82/roster/internal/state"
	"github.com/five82/roster/internal/ui"
	"github.com/five82/roster/internal/users"
)

// Options configure the roster application. Empty fields fall back to the
// config file.
type Options struct {
	ConfigPath string
	APIURL     string
	LogLevel   string
	// LogStderr sends logs to stderr instead of the log file. Only commands
	// that do not own the terminal set it.
	LogStderr bool
}

// Env is the wiring shared by every command: config, logger and an API
// client carrying the saved session token, if any.
type Env struct {
	Config  config.Config
	Logger  *slog.Logger
	Client  *api.Client
	Session session.Session // zero when nobody is signed in

	logFile io.Closer
}

// Bootstrap loads configuration, opens the log and builds the API client.
// Call Close when done.
func Bootstrap(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = v
	}

	env := &Env{Config: cfg}

	logCfg := logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: logging.ParseFormat(cfg.LogFormat),
		Output: os.Stderr,
	}
	if !opts.LogStderr {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		env.logFile = f
		logCfg.Output = f
	}
	env.Logger = logging.New(logCfg)

	sess, err := session.Load(cfg.SessionPath)
	switch {
	case err == nil:
		env.Session = sess
	case errors.Is(err, session.ErrNoSession):
	default:
		env.Logger.Warn("ignoring unreadable session", "path", cfg.SessionPath, "error", err)
	}

	clientOpts := []api.Option{
		api.WithAPIKey(cfg.APIKey),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithResource(cfg.Resource),
		api.WithLogger(env.Logger),
	}
	if env.Session.Valid() {
		clientOpts = append(clientOpts, api.WithToken(env.Session.Token))
	}
	client, err := api.NewClient(cfg.APIURL, clientOpts...)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}
	env.Client = client
	return env, nil
}

// Close releases the log file.
func (e *Env) Close() error {
	if e == nil || e.logFile == nil {
		return nil
	}
	err := e.logFile.Close()
	e.logFile = nil
	return err
}

// Login exchanges creds for a token and persists the session.
func Login(ctx context.Context, env *Env, auth api.Authenticator, creds api.Credentials) (session.Session, error) {
	resp, err := auth.Login(ctx, creds)
	if err != nil {
		env.Logger.Warn("login failed", "email", creds.Email, "error", err)
		return session.Session{}, err
	}
	sess := session.Session{
		Email:     strings.TrimSpace(creds.Email),
		Token:     resp.Token,
		APIURL:    env.Config.APIURL,
		CreatedAt: time.Now().UTC(),
	}
	if err := session.Save(env.Config.SessionPath, sess); err != nil {
		return session.Session{}, err
	}
	env.Session = sess
	env.Logger.Info("signed in", "email", sess.Email, "api", sess.APIURL)
	return sess, nil
}

// Logout forgets the saved session.
func Logout(env *Env) error {
	if err := session.Clear(env.Config.SessionPath); err != nil {
		return err
	}
	env.Session = session.Session{}
	env.Logger.Info("signed out")
	return nil
}

// NewService builds the users data layer on a fresh cache and store.
func NewService(env *Env) *users.Service {
	cache := query.NewCache(query.WithLogger(env.Logger))
	store := state.NewStore(state.Initial())
	return users.New(env.Client, cache, store, users.Options{
		ListStaleTime: env.Config.ListStaleTime,
		ItemStaleTime: env.Config.ItemStaleTime,
		Logger:        env.Logger,
	})
}

// Run boots the roster TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := Bootstrap(opts)
	if err != nil {
		return err
	}
	defer env.Close()

	if !env.Session.Valid() {
		return session.ErrNoSession
	}

	userPrefs, err := prefs.Load(env.Config.PrefsPath)
	if err != nil {
		env.Logger.Warn("using default preferences", "error", err)
	}

	svc := NewService(env)
	defer svc.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var health ui.Health
	if env.Config.RefreshEvery > 0 {
		refresher := NewRefresher(svc, env.Config.RefreshEvery, env.Logger)
		refresher.Start(ctx)
		health = refresher
	}

	env.Logger.Info("starting console", "api", env.Client.BaseURL(), "email", env.Session.Email)
	return ui.Run(ui.Options{
		Context:   ctx,
		Service:   svc,
		Health:    health,
		ThemeName: userPrefs.Theme,
		Sort: listing.Sort{
			Column: listing.ParseColumn(userPrefs.Sort),
			Desc:   userPrefs.SortDesc,
		},
		PrefsPath: env.Config.PrefsPath,
		LogFile:   env.Config.LogFile,
		Email:     env.Session.Email,
		APIURL:    env.Client.BaseURL(),
	})
}
