// Package browser owns the automation driver and the multi-tab bookkeeping.
// The Driver/Tab interfaces keep the tab state machine independent of the
// concrete driver; the production implementation wraps go-rod.
package browser

import (
	"context"
	"time"
)

// Tab is one open browser tab.
type Tab interface {
	// Navigate loads url in this tab.
	Navigate(url string) error

	// Activate brings the tab to the front.
	Activate() error

	// Close closes the tab.
	Close() error

	// HTML returns the current rendered document.
	HTML() (string, error)

	// WaitVisible waits up to timeout for an element matching sel to be
	// present. A timeout yields an error wrapping models.ErrNotFound; any
	// other error is an unexpected driver failure.
	WaitVisible(sel string, timeout time.Duration) error

	// Text returns the text of the first element matching sel, waiting up
	// to timeout for it to appear.
	Text(sel string, timeout time.Duration) (string, error)

	// Click scrolls the first element matching sel into view and performs a
	// scripted click, so off-screen or partially obscured elements still
	// receive the click.
	Click(sel string, timeout time.Duration) error
}

// Driver abstracts the underlying browser-automation driver.
type Driver interface {
	// OpenTab opens url in a new tab and returns it.
	OpenTab(ctx context.Context, url string) (Tab, error)

	// Tabs returns all open tabs, oldest first. The first element is the
	// tab the browser started with.
	Tabs() ([]Tab, error)

	// TabCount returns the number of open tabs.
	TabCount() (int, error)
}
