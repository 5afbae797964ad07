package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/use-agent/channelscout/browser"
	"github.com/use-agent/channelscout/config"
	"github.com/use-agent/channelscout/extract"
	"github.com/use-agent/channelscout/models"
	"github.com/use-agent/channelscout/sink"
)

// noResultsSentinel on the listing page means the keyword has run dry; the
// remaining pages for that keyword are skipped, not the whole sweep.
const noResultsSentinel = "No results"

// Sweep is the top-level loop: every keyword crossed with every page index,
// one ChannelPipeline invocation per discovered handle. Every discovered
// handle yields exactly one record (enriched or placeholder) or an explicit
// no-data skip before the sweep advances; handles are never silently
// dropped.
type Sweep struct {
	tabs    *browser.TabController
	ex      *extract.Extractor
	channel *ChannelPipeline
	records sink.RecordSink
	limiter *rate.Limiter
	cfg     config.SweepConfig
}

// NewSweep assembles the sweep from its collaborators. The browser itself is
// owned by the caller, which closes it unconditionally when Run returns.
func NewSweep(
	tabs *browser.TabController,
	ex *extract.Extractor,
	channel *ChannelPipeline,
	records sink.RecordSink,
	limiter *rate.Limiter,
	cfg config.SweepConfig,
) *Sweep {
	return &Sweep{
		tabs:    tabs,
		ex:      ex,
		channel: channel,
		records: records,
		limiter: limiter,
		cfg:     cfg,
	}
}

// Run performs the full sweep, then uploads the entire accumulated store one
// final time. Page-level failures are logged and skipped; sink failures are
// fatal because nothing downstream can make the store durable again.
func (s *Sweep) Run(ctx context.Context) error {
	for _, keyword := range s.cfg.Keywords {
		for page := 1; page <= s.cfg.MaxPages; page++ {
			exhausted, err := s.runPage(ctx, keyword, page)
			if err != nil {
				if models.CodeOf(err) == models.ErrCodeSink {
					return err
				}
				slog.Error("listing page failed, continuing with next page",
					"keyword", keyword, "page", page, "error", err)
				continue
			}
			if exhausted {
				slog.Info("no results for keyword, skipping remaining pages",
					"keyword", keyword, "page", page)
				break
			}
		}
	}

	slog.Info("sweep complete, performing final bulk upload")
	return s.records.FlushAll(ctx)
}

// runPage loads one listing page and processes every handle on it.
// exhausted reports the keyword's no-results sentinel.
func (s *Sweep) runPage(ctx context.Context, keyword string, page int) (exhausted bool, err error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return false, err
	}

	// The keyword is deliberately not escaped here; the browser's transport
	// encodes the query string.
	listingURL := fmt.Sprintf("%s/?page=%d&q=%s", s.cfg.ListingBase, page, keyword)
	slog.Info("loading listing page", "keyword", keyword, "page", page, "url", listingURL)

	search := s.tabs.Search()
	if err := search.Navigate(listingURL); err != nil {
		return false, err
	}

	if err := s.ex.WaitListingReady(search); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return false, err
		}
		// The ready marker never appeared; the page may still be a valid
		// no-results page, so fall through to the sentinel check.
	}

	listingHTML, err := search.HTML()
	if err != nil {
		return false, err
	}
	if extract.ContainsSentinel(listingHTML, noResultsSentinel) {
		return true, nil
	}

	handles := s.ex.ListHandles(listingHTML)
	if len(handles) == 0 {
		slog.Warn("listing page yielded no channel handles",
			"keyword", keyword, "page", page)
		return false, nil
	}
	slog.Info("listing page enumerated",
		"keyword", keyword, "page", page, "handles", len(handles))

	for i, handle := range handles {
		slog.Info("processing channel",
			"keyword", keyword,
			"page", page,
			"position", fmt.Sprintf("%d/%d", i+1, len(handles)),
			"handle", handle,
		)

		rec, outcome := s.channel.Process(ctx, handle, keyword)
		if rec != nil {
			if err := s.records.Append(ctx, *rec); err != nil {
				return false, err
			}
		}
		slog.Debug("channel processed", "handle", handle, "outcome", outcome.String())
	}
	return false, nil
}
