// Package extract pulls structured values out of the third-party pages:
// channel handles and sentinel text from HTML snapshots, names and about
// text from a live tab. It holds no state beyond its selector configuration.
package extract

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/channelscout/browser"
	"github.com/use-agent/channelscout/models"
)

// FallbackChannelName is recorded when the channel-name header cannot be
// located within its bounded wait. A missing header is a fallback, not a
// pipeline failure.
const FallbackChannelName = "channel name unknown"

// Extractor runs selector queries against pages.
type Extractor struct {
	sel            Selectors
	elementTimeout time.Duration
}

// New returns an Extractor using sel for all queries and elementTimeout as
// the bounded wait for every per-element lookup.
func New(sel Selectors, elementTimeout time.Duration) *Extractor {
	return &Extractor{sel: sel, elementTimeout: elementTimeout}
}

// WaitListingReady blocks until the listing page's ready marker appears.
// Returns an error wrapping models.ErrNotFound when it never does.
func (e *Extractor) WaitListingReady(tab browser.Tab) error {
	return tab.WaitVisible(e.sel.ListingReady, e.elementTimeout)
}

// ChannelName reads the channel-name header, falling back to
// FallbackChannelName when the header is absent or empty. Only an
// unexpected driver failure is returned as an error.
func (e *Extractor) ChannelName(tab browser.Tab) (string, error) {
	text, err := tab.Text(e.sel.ChannelName, e.elementTimeout)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			slog.Debug("channel name header not found, using fallback", "error", err)
			return FallbackChannelName, nil
		}
		return "", err
	}
	if t := strings.TrimSpace(text); t != "" {
		return t, nil
	}
	return FallbackChannelName, nil
}

// ExpandDescription clicks the "show more" control. Best effort: the
// description may already be fully visible, so failure is non-fatal.
func (e *Extractor) ExpandDescription(tab browser.Tab) {
	if err := tab.Click(e.sel.ShowMore, e.elementTimeout); err != nil {
		slog.Debug("show-more control not clicked", "error", err)
	}
}

// AboutText reads the expanded description, returning "" when it is absent.
// Only an unexpected driver failure is returned as an error.
func (e *Extractor) AboutText(tab browser.Tab) (string, error) {
	text, err := tab.Text(e.sel.AboutText, e.elementTimeout)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			slog.Debug("about text not found", "error", err)
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ClickYoutubeLink clicks the analytics page's outbound YouTube link. The
// element may be off-screen or obscured, so the tab performs a scripted
// click after scrolling it into view.
func (e *Extractor) ClickYoutubeLink(tab browser.Tab) error {
	return tab.Click(e.sel.YoutubeLink, e.elementTimeout)
}
