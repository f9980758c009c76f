package headless

import (
	"context"

	"github.com/linkforge/linkforge/internal/engine"
)

// FrameStrategy loads the target in a hidden throwaway browsing context,
// disposed as soon as the attempt resolves.
type FrameStrategy struct {
	browser *Browser
}

// NewFrame builds a FrameStrategy around a shared Browser.
func NewFrame(browser *Browser) *FrameStrategy {
	return &FrameStrategy{browser: browser}
}

// Deliver implements engine.Strategy.
func (s *FrameStrategy) Deliver(ctx context.Context, att engine.Attempt) (bool, error) {
	tabCtx, release, err := s.browser.openTarget()
	if err != nil {
		return false, err
	}
	defer release()
	return s.browser.navigate(ctx, tabCtx, att.URL)
}

// CloseAll implements engine.Disposer.
func (s *FrameStrategy) CloseAll() {
	s.browser.CloseAll()
}

// WindowStrategy navigates a secondary browsing context. With reuse
// semantics one target per slot is navigated repeatedly and stays open
// after the run finishes; with fresh semantics a target is opened and
// disposed per attempt. A target that cannot be opened is an immediate
// attempt failure (the popup-blocked case).
type WindowStrategy struct {
	browser *Browser
}

// NewWindow builds a WindowStrategy around a shared Browser.
func NewWindow(browser *Browser) *WindowStrategy {
	return &WindowStrategy{browser: browser}
}

// Deliver implements engine.Strategy.
func (s *WindowStrategy) Deliver(ctx context.Context, att engine.Attempt) (bool, error) {
	if att.Reuse {
		tabCtx, err := s.browser.slotTarget(att.SlotID)
		if err != nil {
			return false, err
		}
		return s.browser.navigate(ctx, tabCtx, att.URL)
	}
	tabCtx, release, err := s.browser.openTarget()
	if err != nil {
		return false, err
	}
	defer release()
	return s.browser.navigate(ctx, tabCtx, att.URL)
}

// CloseAll implements engine.Disposer.
func (s *WindowStrategy) CloseAll() {
	s.browser.CloseAll()
}
