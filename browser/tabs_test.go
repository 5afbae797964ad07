package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/channelscout/models"
)

// stubTab is a minimal Tab that records lifecycle calls.
type stubTab struct {
	id        int
	activated int
	closed    bool
}

func (t *stubTab) Navigate(string) error { return nil }
func (t *stubTab) Activate() error {
	t.activated++
	return nil
}
func (t *stubTab) Close() error {
	if t.closed {
		return errors.New("already closed")
	}
	t.closed = true
	return nil
}
func (t *stubTab) HTML() (string, error) { return "", nil }

func (t *stubTab) WaitVisible(string, time.Duration) error { return nil }
func (t *stubTab) Text(string, time.Duration) (string, error) {
	return "", nil
}
func (t *stubTab) Click(string, time.Duration) error { return nil }

// stubDriver keeps open tabs in creation order.
type stubDriver struct {
	tabs          []*stubTab
	nextID        int
	countOverride func() int // when set, TabCount lies
}

func (d *stubDriver) addTab() *stubTab {
	d.nextID++
	t := &stubTab{id: d.nextID}
	d.tabs = append(d.tabs, t)
	return t
}

func (d *stubDriver) OpenTab(_ context.Context, _ string) (Tab, error) {
	return d.addTab(), nil
}

func (d *stubDriver) open() []*stubTab {
	var open []*stubTab
	for _, t := range d.tabs {
		if !t.closed {
			open = append(open, t)
		}
	}
	return open
}

func (d *stubDriver) Tabs() ([]Tab, error) {
	open := d.open()
	tabs := make([]Tab, len(open))
	for i, t := range open {
		tabs[i] = t
	}
	return tabs, nil
}

func (d *stubDriver) TabCount() (int, error) {
	if d.countOverride != nil {
		return d.countOverride(), nil
	}
	return len(d.open()), nil
}

func newController(d *stubDriver) *TabController {
	search := d.addTab()
	c := NewTabController(d, search, 300*time.Millisecond)
	c.pollEvery = 10 * time.Millisecond
	return c
}

func TestOpenNext_BindsAnalyticsThenYoutube(t *testing.T) {
	d := &stubDriver{}
	c := newController(d)

	role, err := c.OpenNext(context.Background(), "https://example.test/a")
	if err != nil {
		t.Fatalf("first OpenNext: %v", err)
	}
	if role != RoleAnalytics {
		t.Errorf("first role = %q, want %q", role, RoleAnalytics)
	}

	role, err = c.OpenNext(context.Background(), "https://example.test/b")
	if err != nil {
		t.Fatalf("second OpenNext: %v", err)
	}
	if role != RoleYoutube {
		t.Errorf("second role = %q, want %q", role, RoleYoutube)
	}
	if c.BoundCount() != 3 {
		t.Errorf("bound count = %d, want 3", c.BoundCount())
	}

	if _, err := c.OpenNext(context.Background(), "https://example.test/c"); err == nil {
		t.Error("third OpenNext must fail: all roles bound")
	}
}

func TestOpenNext_TimeoutLeavesNothingBound(t *testing.T) {
	d := &stubDriver{}
	c := newController(d)
	c.openTimeout = 50 * time.Millisecond
	d.countOverride = func() int { return 1 } // new tab never "materializes"

	_, err := c.OpenNext(context.Background(), "https://example.test/a")
	if err == nil {
		t.Fatal("expected NAV_TIMEOUT error")
	}
	if models.CodeOf(err) != models.ErrCodeNavTimeout {
		t.Errorf("error code = %q, want %q", models.CodeOf(err), models.ErrCodeNavTimeout)
	}
	if c.BoundCount() != 1 {
		t.Errorf("bound count = %d, want 1", c.BoundCount())
	}
	// The tab that failed to materialize must have been discarded.
	if got := len(d.open()); got != 1 {
		t.Errorf("open tabs = %d, want 1", got)
	}
}

func TestSwitchTo_UnboundRole(t *testing.T) {
	d := &stubDriver{}
	c := newController(d)

	err := c.SwitchTo(RoleYoutube)
	if err == nil {
		t.Fatal("expected ROLE_NOT_BOUND error")
	}
	if models.CodeOf(err) != models.ErrCodeRoleNotBound {
		t.Errorf("error code = %q, want %q", models.CodeOf(err), models.ErrCodeRoleNotBound)
	}

	if err := c.SwitchTo(RoleSearch); err != nil {
		t.Errorf("SwitchTo(search): %v", err)
	}
}

func TestAdoptLatest_BindsNewestTab(t *testing.T) {
	d := &stubDriver{}
	c := newController(d)

	if _, err := c.OpenNext(context.Background(), "https://example.test/a"); err != nil {
		t.Fatalf("OpenNext: %v", err)
	}

	// Simulate a target=_blank link click creating a tab behind our back.
	spawned := d.addTab()

	role, err := c.AdoptLatest(context.Background())
	if err != nil {
		t.Fatalf("AdoptLatest: %v", err)
	}
	if role != RoleYoutube {
		t.Errorf("adopted role = %q, want %q", role, RoleYoutube)
	}
	if spawned.activated == 0 {
		t.Error("adopted tab was not focused")
	}

	got, err := c.Get(RoleYoutube)
	if err != nil {
		t.Fatalf("Get(youtube): %v", err)
	}
	if got != spawned {
		t.Error("youtube role bound to the wrong tab")
	}
}

func TestAdoptLatest_TimesOutWithoutNewTab(t *testing.T) {
	d := &stubDriver{}
	c := newController(d)
	c.openTimeout = 50 * time.Millisecond

	if _, err := c.OpenNext(context.Background(), "https://example.test/a"); err != nil {
		t.Fatalf("OpenNext: %v", err)
	}

	_, err := c.AdoptLatest(context.Background())
	if models.CodeOf(err) != models.ErrCodeNavTimeout {
		t.Errorf("error code = %q, want %q", models.CodeOf(err), models.ErrCodeNavTimeout)
	}
	if c.BoundCount() != 2 {
		t.Errorf("bound count = %d, want 2", c.BoundCount())
	}
}

func TestCloseCurrentAndReturnTo_NestedTeardown(t *testing.T) {
	d := &stubDriver{}
	c := newController(d)
	search := d.tabs[0]

	if _, err := c.OpenNext(context.Background(), "https://example.test/a"); err != nil {
		t.Fatalf("OpenNext analytics: %v", err)
	}
	analytics := d.tabs[1]
	if _, err := c.OpenNext(context.Background(), "https://example.test/y"); err != nil {
		t.Fatalf("OpenNext youtube: %v", err)
	}
	youtube := d.tabs[2]

	if err := c.CloseCurrentAndReturnTo(RoleAnalytics); err != nil {
		t.Fatalf("close youtube: %v", err)
	}
	if !youtube.closed {
		t.Error("youtube tab still open")
	}
	if c.Current() != RoleAnalytics {
		t.Errorf("current = %q, want %q", c.Current(), RoleAnalytics)
	}

	if err := c.CloseCurrentAndReturnTo(RoleSearch); err != nil {
		t.Fatalf("close analytics: %v", err)
	}
	if !analytics.closed {
		t.Error("analytics tab still open")
	}
	if search.closed {
		t.Error("search tab must never be closed")
	}
	if c.BoundCount() != 1 || c.Current() != RoleSearch {
		t.Errorf("controller not at rest: count=%d current=%q", c.BoundCount(), c.Current())
	}
}

func TestCloseCurrentAndReturnTo_OrderViolationPanics(t *testing.T) {
	d := &stubDriver{}
	c := newController(d)
	ctx := context.Background()
	if _, err := c.OpenNext(ctx, "https://example.test/a"); err != nil {
		t.Fatalf("OpenNext: %v", err)
	}
	if _, err := c.OpenNext(ctx, "https://example.test/y"); err != nil {
		t.Fatalf("OpenNext: %v", err)
	}

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("skipping analytics in the close order must panic")
		}
		if !strings.Contains(fmt.Sprint(r), "close order violation") {
			t.Errorf("unexpected panic message: %v", r)
		}
	}()
	_ = c.CloseCurrentAndReturnTo(RoleSearch) // youtube must return to analytics
}

func TestCloseCurrentAndReturnTo_OnlySearchPanics(t *testing.T) {
	d := &stubDriver{}
	c := newController(d)

	defer func() {
		if recover() == nil {
			t.Fatal("closing with only the search tab bound must panic")
		}
	}()
	_ = c.CloseCurrentAndReturnTo(RoleSearch)
}

func TestResetToSearchOnly(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *stubDriver, c *TabController)
	}{
		{"already at rest", func(d *stubDriver, c *TabController) {}},
		{"one extra bound tab", func(d *stubDriver, c *TabController) {
			_, _ = c.OpenNext(context.Background(), "https://example.test/a")
		}},
		{"two bound plus a stray tab", func(d *stubDriver, c *TabController) {
			ctx := context.Background()
			_, _ = c.OpenNext(ctx, "https://example.test/a")
			_, _ = c.OpenNext(ctx, "https://example.test/y")
			d.addTab() // never bound to any role
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDriver{}
			c := newController(d)
			tt.setup(d, c)

			c.ResetToSearchOnly()

			if got := len(d.open()); got != 1 {
				t.Errorf("open tabs after reset = %d, want 1", got)
			}
			if c.BoundCount() != 1 || c.Current() != RoleSearch {
				t.Errorf("controller not at rest: count=%d current=%q", c.BoundCount(), c.Current())
			}
			if d.tabs[0].closed {
				t.Error("search tab was closed by reset")
			}

			// Idempotent: a second reset changes nothing.
			c.ResetToSearchOnly()
			if got := len(d.open()); got != 1 {
				t.Errorf("open tabs after second reset = %d, want 1", got)
			}
		})
	}
}
