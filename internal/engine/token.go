package engine

import "sync/atomic"

// TokenSource issues monotonically increasing generation tokens. Exactly one
// token is current at a time; asynchronous continuations compare their
// stored token against the current one before mutating shared state, which
// is the sole cancellation mechanism for superseded runs.
type TokenSource struct {
	cur atomic.Int64
}

// Next advances the generation and returns the new current token.
func (t *TokenSource) Next() int64 {
	return t.cur.Add(1)
}

// Current returns the current token.
func (t *TokenSource) Current() int64 {
	return t.cur.Load()
}

// IsCurrent reports whether tok is still the live generation.
func (t *TokenSource) IsCurrent(tok int64) bool {
	return t.cur.Load() == tok
}

// Invalidate retires the current generation without starting a new one.
func (t *TokenSource) Invalidate() {
	t.cur.Add(1)
}
