package collydelivery

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/template"
)

// DirectStrategy delivers by issuing a GET straight to the target URL.
type DirectStrategy struct {
	fetcher *Fetcher
	timeout time.Duration
}

// NewDirect builds a DirectStrategy around a shared Fetcher.
func NewDirect(fetcher *Fetcher, timeout time.Duration) *DirectStrategy {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DirectStrategy{fetcher: fetcher, timeout: timeout}
}

// Deliver implements engine.Strategy.
func (s *DirectStrategy) Deliver(ctx context.Context, att engine.Attempt) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.fetcher.ProbeOK(attemptCtx, att.URL)
}

// PingStrategy delivers through configured proxy templates: each proxy is
// rendered against the target URL and probed in order; the first proxy
// answering 2xx wins.
type PingStrategy struct {
	fetcher *Fetcher
	proxies func() []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPing builds a PingStrategy. proxies is called per attempt so the
// strategy always sees the live proxy collection.
func NewPing(fetcher *Fetcher, proxies func() []string, timeout time.Duration, logger *zap.Logger) *PingStrategy {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PingStrategy{
		fetcher: fetcher,
		proxies: proxies,
		timeout: timeout,
		logger:  logger,
	}
}

// Deliver implements engine.Strategy. Each proxy gets its own deadline; a
// proxy template that renders empty is skipped.
func (s *PingStrategy) Deliver(ctx context.Context, att engine.Attempt) (bool, error) {
	for _, tpl := range s.proxies() {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		proxyURL, err := template.Render(tpl, att.URL, "")
		if err != nil || strings.TrimSpace(proxyURL) == "" {
			continue
		}
		proxyCtx, cancel := context.WithTimeout(ctx, s.timeout)
		ok, probeErr := s.fetcher.ProbeOK(proxyCtx, proxyURL)
		cancel()
		if ok {
			return true, nil
		}
		if probeErr != nil {
			s.logger.Debug("proxy ping failed", zap.String("proxy", proxyURL), zap.Error(probeErr))
		}
	}
	return false, nil
}
