package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which the email column and
	// the API host are hidden.
	LayoutCompactWidth = 80
)

// Log display limits.
const (
	// LogLineLimit is the number of log lines read per refresh.
	LogLineLimit = 1000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// ToastDuration is how long a notification stays on screen.
	ToastDuration = 3 * time.Second

	// LogRefreshDebounce is the minimum time between log reads.
	LogRefreshDebounce = 900 * time.Millisecond
)
