// Package pipeline contains the per-channel state machine and the top-level
// keyword/pagination sweep.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/channelscout/browser"
	"github.com/use-agent/channelscout/emailparse"
	"github.com/use-agent/channelscout/extract"
	"github.com/use-agent/channelscout/models"
)

// Outcome tags the result of processing one channel handle.
type Outcome int

const (
	// OutcomeEnriched: full pipeline success; the record carries data
	// extracted from the YouTube about page (the email may still be empty).
	OutcomeEnriched Outcome = iota

	// OutcomeNoData: the analytics page showed the no-data sentinel.
	// Absence of data is not a failure; no record is emitted.
	OutcomeNoData

	// OutcomeFailed: a tab was opened but a later step failed; the record
	// is the failure placeholder.
	OutcomeFailed

	// OutcomeOpenFailed: the analytics tab never opened, so no record is
	// emitted at all.
	OutcomeOpenFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEnriched:
		return "enriched"
	case OutcomeNoData:
		return "no-data"
	case OutcomeFailed:
		return "failed"
	case OutcomeOpenFailed:
		return "open-failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

const (
	// noDataSentinel on the analytics page means the channel has no stats.
	noDataSentinel = "No data found"

	// analyticsPath is the per-channel stats page under the listing site.
	analyticsPath = "channelytics"
)

// ChannelPipeline drives one channel handle through analytics lookup,
// sentinel check, YouTube navigation and extraction. Each handle is
// attempted exactly once; there are no retries. Whatever happens, the
// browser is back to a single search tab before Process returns.
type ChannelPipeline struct {
	tabs   *browser.TabController
	ex     *extract.Extractor
	base   string
	settle time.Duration
}

// NewChannelPipeline wires the tab controller and extractor together.
// base is the listing site root; settle is the pause after tab switches.
func NewChannelPipeline(tabs *browser.TabController, ex *extract.Extractor, base string, settle time.Duration) *ChannelPipeline {
	return &ChannelPipeline{tabs: tabs, ex: ex, base: base, settle: settle}
}

// Process runs the pipeline for one handle. A non-nil record must be
// persisted by the caller; OutcomeNoData and OutcomeOpenFailed yield none.
func (p *ChannelPipeline) Process(ctx context.Context, handle models.Handle, keyword string) (*models.ResultRecord, Outcome) {
	rec, outcome, err := p.process(ctx, handle, keyword)
	if err == nil {
		return rec, outcome
	}

	if outcome == OutcomeOpenFailed {
		// No tab was ever opened, so there is nothing to recover and no
		// placeholder to write.
		slog.Warn("analytics tab never opened, skipping handle",
			"handle", handle, "error", err)
		return nil, OutcomeOpenFailed
	}

	slog.Warn("channel pipeline failed, recovering to search tab",
		"handle", handle, "error", err)
	p.tabs.ResetToSearchOnly()
	placeholder := models.Placeholder(models.NormalizeHandle(string(handle)), keyword)
	return &placeholder, OutcomeFailed
}

func (p *ChannelPipeline) process(ctx context.Context, handle models.Handle, keyword string) (*models.ResultRecord, Outcome, error) {
	h := models.NormalizeHandle(string(handle))
	analyticsURL := fmt.Sprintf("%s/%s/%s", p.base, h.PathEscape(), analyticsPath)

	// 1-2. Open the analytics page in a new tab and wait for it to
	// materialize. OpenNext leaves nothing bound on failure, but the handle
	// is only skipped without a record when no tab ever opened; a tab that
	// opened and was then discarded (materialization timeout, focus failure)
	// still costs the handle its placeholder row.
	if _, err := p.tabs.OpenNext(ctx, analyticsURL); err != nil {
		switch models.CodeOf(err) {
		case models.ErrCodeNavTimeout, models.ErrCodeNavigation:
			return nil, OutcomeFailed, err
		}
		return nil, OutcomeOpenFailed, err
	}
	p.settleWait(ctx)

	analytics, err := p.tabs.Get(browser.RoleAnalytics)
	if err != nil {
		return nil, OutcomeFailed, err
	}

	// 3. No-data sentinel: close the tab and move on without a record.
	pageHTML, err := analytics.HTML()
	if err != nil {
		return nil, OutcomeFailed, err
	}
	if extract.ContainsSentinel(pageHTML, noDataSentinel) {
		if err := p.tabs.CloseCurrentAndReturnTo(browser.RoleSearch); err != nil {
			return nil, OutcomeFailed, err
		}
		return nil, OutcomeNoData, nil
	}

	// 4. Click through to the channel's YouTube page. The link opens a
	// third tab via target=_blank.
	if err := p.ex.ClickYoutubeLink(analytics); err != nil {
		return nil, OutcomeFailed, err
	}

	// 5. Adopt the new tab once it appears.
	if _, err := p.tabs.AdoptLatest(ctx); err != nil {
		return nil, OutcomeFailed, err
	}
	p.settleWait(ctx)

	youtube, err := p.tabs.Get(browser.RoleYoutube)
	if err != nil {
		return nil, OutcomeFailed, err
	}

	// 6. Extraction. Missing elements fall back inside the extractor; an
	// error here is an unexpected driver failure and drives recovery.
	name, err := p.ex.ChannelName(youtube)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	p.ex.ExpandDescription(youtube)
	p.settleWait(ctx)
	about, err := p.ex.AboutText(youtube)
	if err != nil {
		return nil, OutcomeFailed, err
	}
	email := emailparse.First(about)

	rec := models.ResultRecord{
		ChannelName: name,
		Handle:      h,
		Keyword:     keyword,
		Email:       email,
	}

	// 7-8. Normal-path teardown, the nested mirror of ResetToSearchOnly:
	// youtube back to analytics, analytics back to search. The record is
	// already complete, so a teardown failure costs a reset, not the row.
	if err := p.closeToSearch(ctx); err != nil {
		slog.Warn("tab teardown failed after extraction, resetting",
			"handle", h, "error", err)
		p.tabs.ResetToSearchOnly()
	}
	return &rec, OutcomeEnriched, nil
}

func (p *ChannelPipeline) closeToSearch(ctx context.Context) error {
	if err := p.tabs.CloseCurrentAndReturnTo(browser.RoleAnalytics); err != nil {
		return err
	}
	p.settleWait(ctx)
	return p.tabs.CloseCurrentAndReturnTo(browser.RoleSearch)
}

// settleWait pauses between tab operations so the freshly focused page has
// time to render before the next selector query.
func (p *ChannelPipeline) settleWait(ctx context.Context) {
	if p.settle <= 0 {
		return
	}
	select {
	case <-time.After(p.settle):
	case <-ctx.Done():
	}
}
