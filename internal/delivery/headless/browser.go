// Package headless contains delivery strategies that navigate browser
// targets via chromedp.
package headless

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// DefaultNavTimeout bounds a single browser navigation attempt.
const DefaultNavTimeout = 8 * time.Second

// DefaultSentinelTitle is the document title a mirror host's generic error
// page carries; a loaded page with this title counts as a failed delivery.
const DefaultSentinelTitle = "welcome to nginx"

// Config controls the shared browser.
type Config struct {
	MaxParallel   int
	UserAgent     string
	NavTimeout    time.Duration
	SentinelTitle string
}

// Browser owns a headless Chrome allocator plus the registry of every open
// target, so a stopped run can deterministically dispose all of them.
type Browser struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	nextID   int64
	targets  map[int64]context.CancelFunc
	slotTabs map[int]*slotTab
}

// slotTab is the reused browsing context owned by one scheduler slot.
type slotTab struct {
	id     int64
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the shared Browser.
func New(cfg Config) (*Browser, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = DefaultNavTimeout
	}
	if cfg.SentinelTitle == "" {
		cfg.SentinelTitle = DefaultSentinelTitle
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		targets:     make(map[int64]context.CancelFunc),
		slotTabs:    make(map[int]*slotTab),
	}, nil
}

// Close disposes every tracked target and the allocator.
func (b *Browser) Close() {
	b.CloseAll()
	b.allocCancel()
}

// CloseAll disposes every tracked target, including reused slot tabs.
func (b *Browser) CloseAll() {
	b.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(b.targets))
	for _, cancel := range b.targets {
		cancels = append(cancels, cancel)
	}
	b.targets = make(map[int64]context.CancelFunc)
	b.slotTabs = make(map[int]*slotTab)
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// openTarget creates a fresh tracked target. The returned release func
// closes the target and removes it from the registry.
func (b *Browser) openTarget() (context.Context, func(), error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocator)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.targets[id] = tabCancel
	b.mu.Unlock()

	release := func() {
		b.mu.Lock()
		_, tracked := b.targets[id]
		delete(b.targets, id)
		b.mu.Unlock()
		if tracked {
			tabCancel()
		}
	}
	return tabCtx, release, nil
}

// slotTarget returns the reused tab for a slot, creating it when missing or
// dead.
func (b *Browser) slotTarget(slotID int) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tab, ok := b.slotTabs[slotID]; ok && tab.ctx.Err() == nil {
		return tab.ctx, nil
	}
	tabCtx, tabCancel := chromedp.NewContext(b.allocator)
	b.nextID++
	id := b.nextID
	b.targets[id] = tabCancel
	b.slotTabs[slotID] = &slotTab{id: id, ctx: tabCtx, cancel: tabCancel}
	return tabCtx, nil
}

// navigate drives one load attempt inside tabCtx. The tab survives a
// deadline on the derived context, so reused tabs stay open.
func (b *Browser) navigate(ctx context.Context, tabCtx context.Context, url string) (bool, error) {
	if err := b.acquire(ctx); err != nil {
		return false, err
	}
	defer b.release()

	navCtx, cancel := context.WithTimeout(tabCtx, b.navTimeout(ctx))
	defer cancel()

	var title string
	actions := []chromedp.Action{
		b.setupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
	}
	if err := chromedp.Run(navCtx, actions...); err != nil {
		return false, fmt.Errorf("navigate %s: %w", url, err)
	}
	if b.isSentinel(title) {
		return false, nil
	}
	return true, nil
}

// navTimeout clips the configured deadline to the caller's remaining budget.
func (b *Browser) navTimeout(ctx context.Context) time.Duration {
	timeout := b.cfg.NavTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (b *Browser) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (b *Browser) isSentinel(title string) bool {
	return strings.EqualFold(strings.TrimSpace(title), b.cfg.SentinelTitle)
}

func (b *Browser) acquire(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	select {
	case b.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (b *Browser) release() {
	if b.limiter == nil {
		return
	}
	select {
	case <-b.limiter:
	default:
	}
}

// openTargets reports how many targets are currently tracked.
func (b *Browser) openTargets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.targets)
}
