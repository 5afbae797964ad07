package extract

import (
	"fmt"

	"github.com/andybalholm/cascadia"

	"github.com/use-agent/channelscout/models"
)

// Selectors is the externally-supplied selector configuration. The target
// sites change markup without notice; keeping every selector here means
// structural drift costs a config change, not a pipeline change.
type Selectors struct {
	// ListingReady marks the listing page as usable.
	ListingReady string

	// HandleText selects the elements whose text may be a channel handle.
	HandleText string

	// YoutubeLink is the analytics page's outbound link to the channel.
	YoutubeLink string

	// ChannelName is the channel-name header on the YouTube about page.
	ChannelName string

	// ShowMore is the control that expands the truncated description.
	ShowMore string

	// AboutText is the expanded description element.
	AboutText string
}

// DefaultSelectors returns the selector set for the current site markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ListingReady: `button[class*="go-to-channel"]`,
		HandleText:   `p`,
		YoutubeLink:  `a[href*="youtube.com/"]`,
		ChannelName:  `yt-page-header-renderer yt-dynamic-text-view-model h2`,
		ShowMore:     `yt-description-preview-view-model truncated-text button`,
		AboutText:    `ytd-about-channel-renderer yt-attributed-string span`,
	}
}

// Validate parses every selector so that stale selector configuration is
// caught at startup rather than mid-sweep.
func (s Selectors) Validate() error {
	named := map[string]string{
		"listing-ready": s.ListingReady,
		"handle-text":   s.HandleText,
		"youtube-link":  s.YoutubeLink,
		"channel-name":  s.ChannelName,
		"show-more":     s.ShowMore,
		"about-text":    s.AboutText,
	}
	for name, sel := range named {
		if sel == "" {
			return models.NewSweepError(models.ErrCodeInvalidInput,
				fmt.Sprintf("selector %s is empty", name), nil)
		}
		if _, err := cascadia.Parse(sel); err != nil {
			return models.NewSweepError(models.ErrCodeInvalidInput,
				fmt.Sprintf("selector %s (%q) does not parse", name, sel), err)
		}
	}
	return nil
}
