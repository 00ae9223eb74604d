// Package state holds the process-wide list state shown by the users table.
//
// # Overview
//
// ListState is the single source of truth the view layer reads. It is only
// ever changed by dispatching Actions: small pure transitions such as
// ReplaceItems, PatchItem or RemoveItem. Writers are the users service
// (mirroring query cache events and applying mutation results); the view
// dispatches page and search changes.
//
//	query cache events ──┐
//	mutation results ────┼──→ store.Dispatch(actions...) ──→ subscribers
//	view (page, search) ─┘              │
//	                                    └──→ store.Snapshot()
//
// # Transitions
//
// Every Action returns a new ListState and never writes through the slices
// of the state it was given, so a snapshot held by a reader stays valid after
// later dispatches. PatchItem and RemoveItem are no-ops when the id is not on
// the current page.
//
// # Subscriptions
//
// Subscribe hands out a channel with room for one state. Dispatch replaces
// any unread value, so a reader that falls behind sees the newest state and
// skips the ones in between. Dispatch never blocks on a reader, which lets
// the Bubble Tea program wait on the channel from a tea.Cmd without holding
// up network callbacks.
//
// # Zero value
//
// A zero Store is ready to use and starts from Initial().
package state
