package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/channelscout/config"
	"github.com/use-agent/channelscout/models"
)

// Browser owns the Chromium process and implements Driver on top of go-rod.
type Browser struct {
	browser *rod.Browser
	blocked []string
}

// Launch starts a Chromium instance and connects to it.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewSweepError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewSweepError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &Browser{browser: browser, blocked: cfg.BlockedResources}, nil
}

// SearchTab adopts the browser's initial blank page as the search tab, so
// the process holds exactly one tab at rest. listingBase seeds the Referer
// header sent with listing loads.
func (b *Browser) SearchTab(listingBase string) (Tab, error) {
	pages, err := b.browser.Pages()
	if err != nil {
		return nil, models.NewSweepError(models.ErrCodeBrowserCrash, "failed to list pages", err)
	}

	var page *rod.Page
	if len(pages) > 0 {
		page = pages.First()
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{})
		if err != nil {
			return nil, models.NewSweepError(models.ErrCodeBrowserCrash, "failed to create search tab", err)
		}
	}

	router := b.preparePage(page)
	setSearchReferer(page, listingBase)
	return &rodTab{page: page, router: router}, nil
}

// OpenTab creates a blank tab, installs stealth and resource blocking, then
// navigates. Stealth injection and the hijack router only take effect for
// navigations that happen after they are installed, hence the blank target.
func (b *Browser) OpenTab(ctx context.Context, targetURL string) (Tab, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewSweepError(models.ErrCodeBrowserCrash, "failed to create tab", err)
	}

	router := b.preparePage(page)

	if err := page.Context(ctx).Navigate(targetURL); err != nil {
		if router != nil {
			_ = router.Stop()
		}
		_ = page.Close()
		return nil, models.NewSweepError(models.ErrCodeNavigation,
			fmt.Sprintf("navigation to %s failed", targetURL), err)
	}
	return &rodTab{page: page, router: router}, nil
}

// Tabs returns all open pages, oldest first. CDP reports targets in creation
// order, which matches the "last element is the newest tab" assumption the
// tab controller relies on.
func (b *Browser) Tabs() ([]Tab, error) {
	pages, err := b.browser.Pages()
	if err != nil {
		return nil, models.NewSweepError(models.ErrCodeBrowserCrash, "failed to list pages", err)
	}
	tabs := make([]Tab, len(pages))
	for i, p := range pages {
		tabs[i] = &rodTab{page: p}
	}
	return tabs, nil
}

// TabCount returns the number of open pages.
func (b *Browser) TabCount() (int, error) {
	pages, err := b.browser.Pages()
	if err != nil {
		return 0, models.NewSweepError(models.ErrCodeBrowserCrash, "failed to list pages", err)
	}
	return len(pages), nil
}

// Close kills the browser process. Call unconditionally at the end of the
// sweep to prevent zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("closing browser")
	b.browser.MustClose()
	slog.Info("browser closed")
}

// preparePage installs the stealth script and the resource-blocking hijack
// router on a page, before any navigation. The returned router (nil when
// nothing is blocked) must be stopped when the tab closes.
func (b *Browser) preparePage(page *rod.Page) *rod.HijackRouter {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}
	return mountHijack(page, b.blocked)
}

// setSearchReferer makes listing loads look like they arrived from a search
// engine result.
func setSearchReferer(page *rod.Page, listingBase string) {
	u, err := url.Parse(listingBase)
	if err != nil {
		return
	}
	headers := proto.NetworkHeaders{
		"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(page)
}

// rodTab adapts a *rod.Page to the Tab interface. router is nil for tabs the
// page opened itself (adopted via Tabs()); their requests are not hijacked.
type rodTab struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (t *rodTab) Navigate(url string) error {
	if err := t.page.Navigate(url); err != nil {
		return models.NewSweepError(models.ErrCodeNavigation,
			fmt.Sprintf("navigation to %s failed", url), err)
	}
	return nil
}

func (t *rodTab) Activate() error {
	_, err := t.page.Activate()
	return err
}

func (t *rodTab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
	}
	return t.page.Close()
}

func (t *rodTab) HTML() (string, error) {
	return t.page.HTML()
}

func (t *rodTab) WaitVisible(sel string, timeout time.Duration) error {
	if _, err := t.page.Timeout(timeout).Element(sel); err != nil {
		return notFoundOrErr(sel, err)
	}
	return nil
}

func (t *rodTab) Text(sel string, timeout time.Duration) (string, error) {
	el, err := t.page.Timeout(timeout).Element(sel)
	if err != nil {
		return "", notFoundOrErr(sel, err)
	}
	return el.Text()
}

func (t *rodTab) Click(sel string, timeout time.Duration) error {
	el, err := t.page.Timeout(timeout).Element(sel)
	if err != nil {
		return notFoundOrErr(sel, err)
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll %q into view: %w", sel, err)
	}
	// Scripted click: unlike a synthetic mouse event it still lands when the
	// element is overlapped by another node.
	if _, err := el.Eval(`() => this.click()`); err != nil {
		return fmt.Errorf("scripted click on %q: %w", sel, err)
	}
	return nil
}

// notFoundOrErr maps a deadline on an element wait to the expected-absence
// sentinel; everything else stays an unexpected error.
func notFoundOrErr(sel string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("element %q not present within deadline: %w", sel, models.ErrNotFound)
	}
	return fmt.Errorf("element %q: %w", sel, err)
}
