package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/channelscout/models"
)

// Role names the logical job of a bound tab.
type Role string

const (
	RoleSearch    Role = "search"
	RoleAnalytics Role = "analytics"
	RoleYoutube   Role = "youtube"
)

// roleOrder is the binding order. Search is bound at construction and is the
// sole survivor at rest; analytics and youtube are bound and released per
// channel, strictly nested.
var roleOrder = []Role{RoleSearch, RoleAnalytics, RoleYoutube}

type binding struct {
	role Role
	tab  Tab
}

// TabController owns the mapping from roles to tab handles. Between any two
// channel iterations exactly one tab is open and it is bound to RoleSearch;
// the controller's stack is the single authority on which handle plays which
// role.
//
// Not safe for concurrent use; the sweep is strictly sequential.
type TabController struct {
	driver      Driver
	stack       []binding
	openTimeout time.Duration
	pollEvery   time.Duration
}

// NewTabController binds search to the given tab. openTimeout bounds the
// wait for a new tab to materialize in OpenNext and AdoptLatest.
func NewTabController(driver Driver, search Tab, openTimeout time.Duration) *TabController {
	return &TabController{
		driver:      driver,
		stack:       []binding{{role: RoleSearch, tab: search}},
		openTimeout: openTimeout,
		pollEvery:   100 * time.Millisecond,
	}
}

// Search returns the tab bound to RoleSearch, which is always bound.
func (c *TabController) Search() Tab {
	return c.stack[0].tab
}

// Current returns the role of the focused tab (the most recently bound one).
func (c *TabController) Current() Role {
	return c.stack[len(c.stack)-1].role
}

// BoundCount returns the number of bound roles.
func (c *TabController) BoundCount() int {
	return len(c.stack)
}

// Get returns the tab bound to role, or a ROLE_NOT_BOUND error.
func (c *TabController) Get(role Role) (Tab, error) {
	for _, b := range c.stack {
		if b.role == role {
			return b.tab, nil
		}
	}
	return nil, models.NewSweepError(models.ErrCodeRoleNotBound,
		fmt.Sprintf("no tab bound to role %q", role), nil)
}

// OpenNext opens url in a new tab and binds it as the next pending role
// (analytics, then youtube). The tab count must strictly increase within the
// bounded wait, otherwise the tab is discarded and a NAV_TIMEOUT error is
// returned with nothing bound.
func (c *TabController) OpenNext(ctx context.Context, url string) (Role, error) {
	role, err := c.nextRole()
	if err != nil {
		return "", err
	}

	baseline, err := c.driver.TabCount()
	if err != nil {
		return "", models.NewSweepError(models.ErrCodeBrowserCrash, "tab count unavailable", err)
	}

	// TAB_OPEN_FAILED means no tab exists at all; every failure past this
	// point discards a tab that did open, which callers treat differently.
	tab, err := c.driver.OpenTab(ctx, url)
	if err != nil {
		return "", models.NewSweepError(models.ErrCodeTabOpen,
			fmt.Sprintf("failed to open %s in a new tab", url), err)
	}

	if err := c.waitTabCountAbove(ctx, baseline); err != nil {
		_ = tab.Close()
		return "", err
	}

	if err := tab.Activate(); err != nil {
		_ = tab.Close()
		return "", models.NewSweepError(models.ErrCodeNavigation,
			fmt.Sprintf("failed to focus new %s tab", role), err)
	}

	c.stack = append(c.stack, binding{role: role, tab: tab})
	return role, nil
}

// AdoptLatest waits for a tab the page opened itself (a target=_blank link
// click) to materialize, then binds the most recently opened tab as the next
// pending role and focuses it.
func (c *TabController) AdoptLatest(ctx context.Context) (Role, error) {
	role, err := c.nextRole()
	if err != nil {
		return "", err
	}

	// Every bound role holds one tab, so anything beyond that is the one we
	// are waiting for.
	if err := c.waitTabCountAbove(ctx, len(c.stack)); err != nil {
		return "", err
	}

	tabs, err := c.driver.Tabs()
	if err != nil || len(tabs) == 0 {
		return "", models.NewSweepError(models.ErrCodeBrowserCrash, "tab list unavailable", err)
	}
	latest := tabs[len(tabs)-1]

	if err := latest.Activate(); err != nil {
		return "", models.NewSweepError(models.ErrCodeNavigation,
			fmt.Sprintf("failed to focus adopted %s tab", role), err)
	}

	c.stack = append(c.stack, binding{role: role, tab: latest})
	return role, nil
}

// SwitchTo focuses the tab bound to role.
func (c *TabController) SwitchTo(role Role) error {
	tab, err := c.Get(role)
	if err != nil {
		return err
	}
	if err := tab.Activate(); err != nil {
		return models.NewSweepError(models.ErrCodeNavigation,
			fmt.Sprintf("failed to focus %s tab", role), err)
	}
	return nil
}

// CloseCurrentAndReturnTo closes the focused tab, unbinds its role and
// focuses the tab bound to role. Calls must be strictly nested (youtube
// before analytics before search); violating the order is a programming
// error and panics.
func (c *TabController) CloseCurrentAndReturnTo(role Role) error {
	if len(c.stack) < 2 {
		panic("tabs: CloseCurrentAndReturnTo called with only the search tab bound")
	}
	top := c.stack[len(c.stack)-1]
	below := c.stack[len(c.stack)-2]
	if below.role != role {
		panic(fmt.Sprintf("tabs: close order violation: %s must return to %s, got %s",
			top.role, below.role, role))
	}

	c.stack = c.stack[:len(c.stack)-1]
	if err := top.tab.Close(); err != nil {
		return models.NewSweepError(models.ErrCodeTabClose,
			fmt.Sprintf("failed to close %s tab", top.role), err)
	}
	if err := below.tab.Activate(); err != nil {
		return models.NewSweepError(models.ErrCodeNavigation,
			fmt.Sprintf("failed to focus %s tab", below.role), err)
	}
	return nil
}

// ResetToSearchOnly closes every tab except the search tab, most recently
// opened first, and rebinds state so only search remains. It is the sole
// recovery primitive for a failed channel: idempotent, safe with zero, one
// or many extra tabs open, and it never fails: close errors on tabs that
// are already gone are swallowed.
func (c *TabController) ResetToSearchOnly() {
	tabs, err := c.driver.Tabs()
	if err != nil {
		slog.Warn("reset: tab list unavailable, rebinding state only", "error", err)
	} else {
		for i := len(tabs) - 1; i >= 1; i-- {
			if closeErr := tabs[i].Close(); closeErr != nil {
				slog.Debug("reset: tab close failed", "index", i, "error", closeErr)
			}
		}
	}
	c.stack = c.stack[:1]
	if err := c.stack[0].tab.Activate(); err != nil {
		slog.Warn("reset: failed to focus search tab", "error", err)
	}
}

func (c *TabController) nextRole() (Role, error) {
	if len(c.stack) >= len(roleOrder) {
		return "", models.NewSweepError(models.ErrCodeInvalidInput,
			"all tab roles are already bound", nil)
	}
	return roleOrder[len(c.stack)], nil
}

// waitTabCountAbove polls until the driver reports more than baseline open
// tabs, or the bounded wait expires.
func (c *TabController) waitTabCountAbove(ctx context.Context, baseline int) error {
	deadline := time.Now().Add(c.openTimeout)
	for {
		n, err := c.driver.TabCount()
		if err == nil && n > baseline {
			return nil
		}
		if time.Now().After(deadline) {
			return models.NewSweepError(models.ErrCodeNavTimeout,
				fmt.Sprintf("tab count did not exceed %d within %s", baseline, c.openTimeout), err)
		}
		select {
		case <-ctx.Done():
			return models.NewSweepError(models.ErrCodeNavTimeout, "wait for new tab canceled", ctx.Err())
		case <-time.After(c.pollEvery):
		}
	}
}
