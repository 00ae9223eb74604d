// Package config loads roster's TOML configuration.
//
// # Resolution
//
// Load follows this order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/roster/config.toml
//  3. If the file doesn't exist, return Default()
//  4. If the file exists but fields are missing or empty, keep the defaults
//
// # Keys
//
//	api_url          = "https://reqres.in/api"   # API root
//	api_key          = ""                        # sent as x-api-key when set
//	resource         = "users"                   # collection path
//	list_stale_time  = "5m"                      # list page cache lifetime
//	item_stale_time  = "10m"                     # single user cache lifetime
//	refresh_every    = "30s"                     # background refresh, "0s" disables
//	request_timeout  = "10s"
//	log_file         = "~/.local/state/roster/roster.log"
//	log_level        = "info"                    # debug, info, warn, error
//	log_format       = "text"                    # text or json
//	session_file     = "~/.config/roster/session.toml"
//	prefs_file       = "~/.config/roster/prefs.toml"
//
// Durations use Go syntax (time.ParseDuration). A malformed or negative
// duration fails Load with an error naming the key. Paths may start with ~.
//
// Command-line flags (--api, --log-level) are applied by the CLI after Load.
package config
