package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/use-agent/channelscout/browser"
	"github.com/use-agent/channelscout/extract"
	"github.com/use-agent/channelscout/models"
)

// fakePage scripts how one URL behaves: its snapshot HTML, per-selector
// text, which selectors count as present, and what clicking a selector does.
type fakePage struct {
	html       string
	texts      map[string]string
	textErr    map[string]error // selector -> unexpected driver failure
	visible    map[string]bool
	clickSpawn map[string]string // selector -> URL opened in a new tab
	clickErr   map[string]error
	navErr     error // navigating to this page fails
}

// fakeSite maps URLs to scripted pages. Unknown URLs behave as blank pages.
type fakeSite struct {
	pages map[string]*fakePage
}

func (s *fakeSite) page(url string) *fakePage {
	if p, ok := s.pages[url]; ok {
		return p
	}
	return &fakePage{}
}

type fakeTab struct {
	driver *fakeDriver
	page   *fakePage
	url    string
	closed bool
}

func (t *fakeTab) Navigate(url string) error {
	t.driver.navigated = append(t.driver.navigated, url)
	p := t.driver.site.page(url)
	if p.navErr != nil {
		return p.navErr
	}
	t.url = url
	t.page = p
	return nil
}

func (t *fakeTab) Activate() error { return nil }

func (t *fakeTab) Close() error {
	t.closed = true
	t.driver.remove(t)
	return nil
}

func (t *fakeTab) HTML() (string, error) { return t.page.html, nil }

func (t *fakeTab) WaitVisible(sel string, _ time.Duration) error {
	if t.page.visible[sel] {
		return nil
	}
	return fmt.Errorf("element %q: %w", sel, models.ErrNotFound)
}

func (t *fakeTab) Text(sel string, _ time.Duration) (string, error) {
	if err, ok := t.page.textErr[sel]; ok {
		return "", err
	}
	if v, ok := t.page.texts[sel]; ok {
		return v, nil
	}
	return "", fmt.Errorf("element %q: %w", sel, models.ErrNotFound)
}

func (t *fakeTab) Click(sel string, _ time.Duration) error {
	if err, ok := t.page.clickErr[sel]; ok {
		return err
	}
	if url, ok := t.page.clickSpawn[sel]; ok {
		t.driver.spawn(url)
		return nil
	}
	return fmt.Errorf("element %q: %w", sel, models.ErrNotFound)
}

// fakeDriver keeps open tabs in creation order, like a real browser.
type fakeDriver struct {
	site          *fakeSite
	tabs          []*fakeTab
	openErr       error
	navigated     []string
	countOverride func() int // when set, TabCount lies
}

func newFakeDriver(site *fakeSite) *fakeDriver {
	return &fakeDriver{site: site}
}

func (d *fakeDriver) newTab(url string) *fakeTab {
	t := &fakeTab{driver: d, url: url, page: d.site.page(url)}
	d.tabs = append(d.tabs, t)
	return t
}

// spawn models a target=_blank link click creating a tab the driver only
// learns about through Tabs().
func (d *fakeDriver) spawn(url string) { d.newTab(url) }

func (d *fakeDriver) remove(t *fakeTab) {
	for i, other := range d.tabs {
		if other == t {
			d.tabs = append(d.tabs[:i], d.tabs[i+1:]...)
			return
		}
	}
}

func (d *fakeDriver) OpenTab(_ context.Context, url string) (browser.Tab, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.newTab(url), nil
}

func (d *fakeDriver) Tabs() ([]browser.Tab, error) {
	tabs := make([]browser.Tab, len(d.tabs))
	for i, t := range d.tabs {
		tabs[i] = t
	}
	return tabs, nil
}

func (d *fakeDriver) TabCount() (int, error) {
	if d.countOverride != nil {
		return d.countOverride(), nil
	}
	return len(d.tabs), nil
}

// fakeSink accumulates records in memory.
type fakeSink struct {
	records   []models.ResultRecord
	flushed   int
	appendErr error
}

func (s *fakeSink) Append(_ context.Context, rec models.ResultRecord) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *fakeSink) FlushAll(context.Context) error {
	s.flushed++
	return nil
}

const testBase = "https://vs.test"

// newTestPipeline builds a controller, extractor and channel pipeline over a
// fake driver whose search tab is already open.
func newTestPipeline(t *testing.T, site *fakeSite) (*fakeDriver, *browser.TabController, *extract.Extractor, *ChannelPipeline) {
	t.Helper()
	d := newFakeDriver(site)
	search := d.newTab("about:blank")
	tabs := browser.NewTabController(d, search, 200*time.Millisecond)
	ex := extract.New(extract.DefaultSelectors(), 5*time.Millisecond)
	cp := NewChannelPipeline(tabs, ex, testBase, 0)
	return d, tabs, ex, cp
}

func analyticsURL(handle string) string {
	return fmt.Sprintf("%s/%s/channelytics", testBase, handle)
}
