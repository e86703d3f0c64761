package surface

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// navigateTimeout bounds the initial navigation and load wait.
const navigateTimeout = 30 * time.Second

// Page is a Surface backed by one Chrome tab showing the panel. The ready
// flag follows the main frame: it drops when the frame starts loading and
// rises on the load event. It also drops while the browser is recycled.
type Page struct {
	mgr     *Manager
	url     string
	blocked []string
	logger  *slog.Logger

	// ctx bounds the event listener and any reopen after recycling.
	ctx context.Context

	mu     sync.Mutex
	page   *rod.Page
	router *rod.HijackRouter
	stop   context.CancelFunc

	ready  atomic.Bool
	closed atomic.Bool
}

// OpenPage opens a tab on the manager's browser and navigates it to
// pageURL. The tab is reopened automatically after every recycle.
func OpenPage(ctx context.Context, mgr *Manager, pageURL string) (*Page, error) {
	p := &Page{
		mgr:     mgr,
		url:     pageURL,
		blocked: mgr.cfg.ResourceBlocking,
		logger:  mgr.cfg.Logger,
		ctx:     ctx,
	}
	if err := p.open(); err != nil {
		return nil, err
	}
	mgr.OnRecycle(RecycleHooks{
		Before: p.detach,
		After: func(*rod.Browser) {
			if p.closed.Load() {
				return
			}
			if err := p.open(); err != nil {
				p.logger.Error("surface: reopen after recycle", "url", p.url, "error", err)
			}
		},
	})
	return p, nil
}

// URL returns the panel address.
func (p *Page) URL() string { return p.url }

// Ready reports whether the panel's main frame has finished loading.
func (p *Page) Ready() bool { return !p.closed.Load() && p.ready.Load() }

// RunQuery evaluates script in the page and returns its string result.
func (p *Page) RunQuery(ctx context.Context, script string) (string, error) {
	if p.closed.Load() {
		return "", ErrClosed
	}
	if !p.ready.Load() {
		return "", ErrNotReady
	}
	p.mu.Lock()
	page := p.page
	p.mu.Unlock()
	if page == nil {
		return "", ErrNotReady
	}

	res, err := page.Context(ctx).Eval(script)
	if err != nil {
		return "", fmt.Errorf("surface: eval: %w", err)
	}
	return res.Value.Str(), nil
}

// Close closes the tab. The browser itself belongs to the Manager.
func (p *Page) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.detach()
	return nil
}

func (p *Page) open() error {
	b := p.mgr.Browser()
	if b == nil {
		return fmt.Errorf("surface: open page: no active browser")
	}

	var (
		page *rod.Page
		err  error
	)
	if p.mgr.Stealth() {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return fmt.Errorf("surface: create tab: %w", err)
	}

	var router *rod.HijackRouter
	if len(p.blocked) > 0 {
		router = blockResources(page, p.blocked)
	}

	evCtx, stop := context.WithCancel(p.ctx)
	wait := page.Context(evCtx).EachEvent(
		func(e *proto.PageLoadEventFired) {
			p.ready.Store(true)
		},
		func(e *proto.PageFrameStartedLoading) {
			if e.FrameID == page.FrameID {
				p.ready.Store(false)
			}
		},
	)
	go wait()

	p.mu.Lock()
	p.page, p.router, p.stop = page, router, stop
	p.mu.Unlock()

	navCtx, cancel := context.WithTimeout(p.ctx, navigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(p.url); err != nil {
		p.detach()
		return fmt.Errorf("surface: navigate %s: %w", p.url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		p.logger.Warn("surface: wait load", "url", p.url, "error", err)
		return nil
	}
	// The load event may have fired before the listener attached.
	p.ready.Store(true)
	p.logger.Info("surface: page loaded", "url", p.url)
	return nil
}

// detach drops the ready flag and releases the tab.
func (p *Page) detach() {
	p.ready.Store(false)

	p.mu.Lock()
	page, router, stop := p.page, p.router, p.stop
	p.page, p.router, p.stop = nil, nil, nil
	p.mu.Unlock()

	if stop != nil {
		stop()
	}
	if router != nil {
		if err := router.Stop(); err != nil {
			p.logger.Debug("surface: stop hijack router", "error", err)
		}
	}
	if page != nil {
		if err := page.Close(); err != nil {
			p.logger.Debug("surface: close tab", "error", err)
		}
	}
}
