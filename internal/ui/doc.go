// Package ui provides the Bubble Tea console for browsing and managing
// users.
//
// # Architecture Overview
//
// Model is a plain tea.Model. It never calls the API directly: every read
// and write goes through a Service (users.Service in production), and the
// rows on screen come from the service's state.Store. The model subscribes
// to the store once and re-arms waitForState after every stateMsg, so cache
// events, mutations and background refreshes all reach the screen the same
// way.
//
// # Package Structure
//
//   - app.go: Model, Update loop, messages, commands and Run
//   - keys.go: key.Binding map shared by the list, the log view and help
//   - table.go: users table, loading and error panels, pagination line
//   - header.go: status header and command bar
//   - search.go: inline "/" prompt (filters the current page only)
//   - modal.go: delete confirmation
//   - notify.go: transient notifications (ToastDuration)
//   - logs.go: tail of the roster log file via logtail
//   - theme.go, style_helpers.go: Dracula and Slate themes, BgStyle
//
// # List States
//
// The list area shows exactly one of:
//
//   - a spinner while the page has never settled (ListState.Loading)
//   - an error panel when the page failed with nothing to show (ListState.Error)
//   - the table, followed by the pagination line and the toast line
//
// A failed background refresh that still has cached rows keeps the table
// and raises a warning notification instead.
//
// # Deletes
//
// "d" opens a confirmation. Confirming starts one delete; while it runs the
// row is marked and further deletes are refused with a notification. Each
// outcome produces exactly one notification.
//
// # Key Bindings
//
//   - j/k, g/G: move selection
//   - n/], p/[: next and previous page
//   - /: search, enter applies, esc cancels, empty clears
//   - s/S: cycle sort column, flip direction (persisted in prefs)
//   - e: edit (notification only), d: delete, r: reload page
//   - l: log view, T: theme, ?: help, q/ctrl+c: quit
package ui
