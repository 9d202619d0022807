package wifiapp

// DefaultMaxRetries is the number of automatic reconnects per session.
const DefaultMaxRetries = 5

// RetryPolicy counts consecutive connection failures within a session.
// It is owned by the consumer goroutine and is not safe for concurrent use.
type RetryPolicy struct {
	count int
	max   int
}

// NewRetryPolicy creates a policy allowing max automatic retries.
// A negative max is treated as 0.
func NewRetryPolicy(max int) *RetryPolicy {
	if max < 0 {
		max = 0
	}
	return &RetryPolicy{max: max}
}

// RecordSuccess resets the counter.
func (p *RetryPolicy) RecordSuccess() {
	p.count = 0
}

// RecordFailure reports whether another automatic attempt is allowed and
// consumes one retry if so. Once the counter reaches max it stays there and
// every further failure returns false.
func (p *RetryPolicy) RecordFailure() bool {
	if p.count < p.max {
		p.count++
		return true
	}
	return false
}

// Reset starts a new session.
func (p *RetryPolicy) Reset() {
	p.count = 0
}

// Count returns the current failure count.
func (p *RetryPolicy) Count() int {
	return p.count
}

// Max returns the retry bound.
func (p *RetryPolicy) Max() int {
	return p.max
}

// Exhausted reports whether no automatic retry is left.
func (p *RetryPolicy) Exhausted() bool {
	return p.count >= p.max
}
