// Package logtail reads the tail of roster's own log file for the in-app log
// view.
//
// Read keeps the last MaxLines matching lines in a ring buffer, so memory
// stays bounded no matter how large the file grows. Each line is tagged with
// the level parsed from the slog text (level=WARN) or JSON ("level":"WARN")
// handler output, which lets the view filter by severity and color lines.
package logtail
