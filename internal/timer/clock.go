package timer

import (
	"fmt"
	"sync"
	"time"
)

type Band string

const (
	BandNormal  Band = "normal"
	BandWarning Band = "warning"
	BandDanger  Band = "danger"
)

// Tick is what a countdown display needs on every refresh
type Tick struct {
	Remaining       time.Duration `json:"-"`
	RemainingMillis int64         `json:"remaining_ms"`
	Fraction        float64       `json:"fraction"`
	Display         string        `json:"display"`
	Band            Band          `json:"band"`
}

// Clock counts down from an absolute anchor. Remaining time is recomputed
// from the wall clock on every tick, so a resumed page picks up where the
// learner actually is.
type Clock struct {
	duration time.Duration
	interval time.Duration
	now      func() time.Time
	onTick   func(Tick)

	mu      sync.Mutex
	anchor  time.Time
	started bool
	running bool
	expired bool
	stop    chan struct{}
}

type Option func(*Clock)

// WithNow replaces the wall clock
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// WithInterval replaces the one second tick cadence
func WithInterval(d time.Duration) Option {
	return func(c *Clock) { c.interval = d }
}

// WithTickHandler receives every tick from the clock goroutine
func WithTickHandler(fn func(Tick)) Option {
	return func(c *Clock) { c.onTick = fn }
}

// New creates a clock. A zero duration is an untimed clock that never expires.
func New(duration time.Duration, opts ...Option) *Clock {
	c := &Clock{
		duration: duration,
		interval: time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Clock) Duration() time.Duration { return c.duration }

func (c *Clock) Untimed() bool { return c.duration <= 0 }

// Start anchors the countdown. If the time is already used up, onExpire runs
// before Start returns and no ticks are scheduled. onExpire runs at most once.
func (c *Clock) Start(anchor time.Time, onExpire func()) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.anchor = anchor

	if c.Untimed() {
		c.mu.Unlock()
		return
	}

	if c.remainingLocked() <= 0 {
		c.expired = true
		c.mu.Unlock()
		if onExpire != nil {
			onExpire()
		}
		return
	}

	stop := make(chan struct{})
	c.stop = stop
	c.running = true
	c.mu.Unlock()

	go c.run(stop, onExpire)
}

// Stop cancels the countdown. Safe to call at any time, including from onExpire.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		close(c.stop)
		c.running = false
	}
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Clock) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// Remaining is duration minus wall clock time since the anchor, never negative.
// Before Start it is the full duration.
func (c *Clock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// Elapsed is the wall clock time since the anchor
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return 0
	}
	return c.now().Sub(c.anchor)
}

// Current renders the countdown at this instant
func (c *Clock) Current() Tick {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tickLocked()
}

func (c *Clock) run(stop chan struct{}, onExpire func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if done := c.tick(stop, onExpire); done {
				return
			}
		}
	}
}

func (c *Clock) tick(stop chan struct{}, onExpire func()) bool {
	c.mu.Lock()
	if !c.running || c.stop != stop {
		c.mu.Unlock()
		return true
	}

	t := c.tickLocked()
	if t.Remaining <= 0 {
		c.running = false
		c.expired = true
		close(stop)
		c.mu.Unlock()

		if c.onTick != nil {
			c.onTick(t)
		}
		if onExpire != nil {
			onExpire()
		}
		return true
	}
	c.mu.Unlock()

	if c.onTick != nil {
		c.onTick(t)
	}
	return false
}

func (c *Clock) remainingLocked() time.Duration {
	if c.Untimed() {
		return 0
	}
	if !c.started {
		return c.duration
	}
	remaining := c.duration - c.now().Sub(c.anchor)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Clock) tickLocked() Tick {
	if c.Untimed() {
		return Tick{Display: "--:--", Band: BandNormal}
	}

	remaining := c.remainingLocked()
	fraction := float64(remaining) / float64(c.duration)

	band := BandNormal
	switch {
	case fraction < 0.25:
		band = BandDanger
	case fraction < 0.5:
		band = BandWarning
	}

	return Tick{
		Remaining:       remaining,
		RemainingMillis: remaining.Milliseconds(),
		Fraction:        fraction,
		Display:         Format(remaining),
		Band:            band,
	}
}

// Format renders a duration as MM:SS, truncating partial seconds
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
