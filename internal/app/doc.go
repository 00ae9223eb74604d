// Package app is the composition root for roster.
//
// # Overview
//
// Bootstrap turns command-line options into an Env: the loaded config, a
// file-backed logger and an API client carrying the saved session token.
// Every cobra command starts from an Env; the TUI additionally needs a
// session and builds the users data layer on top of it.
//
// # Startup
//
//  1. config.Load, then --api and --log-level overrides
//  2. logging.OpenFile(cfg.LogFile) (stderr for commands that keep the terminal)
//  3. session.Load; a missing session is not an error here
//  4. api.NewClient with api key, timeout, resource, logger and token
//  5. Run only: refuse to start without a session (session.ErrNoSession)
//  6. Run only: prefs.Load, NewService, Refresher.Start, ui.Run (blocks)
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> Bootstrap()          config, logger, client
//	       ├─────> NewService()         query.Cache + state.Store + users.Service
//	       ├─────> Refresher.Start()    background page refresh
//	       └─────> ui.Run()             TUI (blocks)
//
//	Refresher loop:
//	┌─────────────────────────────────────────┐
//	│  ├─> svc.Current()   cache or network   │
//	│  ├─> cache event ──> users.Sync ──> store│
//	│  └─> UI receives store subscription     │
//	└─────────────────────────────────────────┘
//
// # Background Refresh
//
// Every refresh_every the refresher asks the service for the page on
// screen. Fresh cache entries are served without a request; stale ones are
// refetched in the background while the old rows stay visible. Consecutive
// failures double the delay up to five minutes, and the TUI header shows the
// failure count through the Health interface. refresh_every = "0s" disables
// the loop.
//
// # Sessions
//
// Login posts credentials through an api.Authenticator and writes the token
// to session_file with owner-only permissions. Logout removes the file.
package app
