package llm

// Budget tracks cumulative token usage for one session. The consumed counter
// is monotonic and mutated only by the owning Client, which is never called
// concurrently, so no synchronization is needed.
type Budget struct {
	max      int
	warnFrac float64
	hardStop bool

	consumed int
	warned   bool
}

// NewBudget creates a budget. max <= 0 means unlimited; warnFrac is the
// fraction of max at which the one-time warning fires.
func NewBudget(max int, warnFrac float64, hardStop bool) *Budget {
	if warnFrac <= 0 || warnFrac > 1 {
		warnFrac = defaultWarnFraction
	}
	return &Budget{max: max, warnFrac: warnFrac, hardStop: hardStop}
}

// Limited reports whether a maximum is configured.
func (b *Budget) Limited() bool { return b.max > 0 }

// Max returns the configured maximum, 0 when unlimited.
func (b *Budget) Max() int { return b.max }

// Consumed returns the tokens charged so far.
func (b *Budget) Consumed() int { return b.consumed }

// Remaining returns the tokens left, and false when the budget is unlimited.
func (b *Budget) Remaining() (int, bool) {
	if !b.Limited() {
		return 0, false
	}
	r := b.max - b.consumed
	if r < 0 {
		r = 0
	}
	return r, true
}

// Exhausted reports whether consumption has reached the maximum.
func (b *Budget) Exhausted() bool {
	return b.Limited() && b.consumed >= b.max
}

// HardStop reports whether exhaustion should abort the whole run rather than
// surface a continuable error.
func (b *Budget) HardStop() bool { return b.hardStop }

// add charges tokens after a confirmed successful call.
func (b *Budget) add(tokens int) {
	if tokens > 0 {
		b.consumed += tokens
	}
}

// shouldWarn reports whether the warning threshold has been crossed and the
// warning not yet shown. It marks the warning shown, so it fires at most once.
func (b *Budget) shouldWarn() bool {
	if !b.Limited() || b.warned {
		return false
	}
	if float64(b.consumed)/float64(b.max) >= b.warnFrac {
		b.warned = true
		return true
	}
	return false
}
