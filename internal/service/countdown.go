package service

import (
	"fmt"
	"stockwatch/pkg/logger"
	"stockwatch/pkg/utils"
	"sync"
	"time"
)

const (
	countdownNotScheduled = "Not scheduled"
	countdownRunningSoon  = "Running soon..."
	countdownInvalidTime  = "Invalid time"
)

// FormatRemaining renders the time left until a run at coarse-to-fine
// granularity depending on how far away it is.
func FormatRemaining(diff time.Duration) string {
	switch {
	case diff <= 0:
		return countdownRunningSoon
	case diff > time.Hour:
		hours := int(diff.Hours())
		minutes := int(diff.Minutes()) % 60
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case diff >= time.Minute:
		minutes := int(diff.Minutes())
		seconds := int(diff.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int(diff.Seconds()))
	}
}

// Countdown recomputes a human-readable remaining-time string once per
// second while a target is set. The ticker is owned here: it is started
// when a target arrives, restarted when the target changes, and released
// on every exit path.
type Countdown struct {
	log *logger.Logger

	mu     sync.Mutex
	target *time.Time
	value  string
	stopCh chan struct{}
	now    func() time.Time
}

func NewCountdown(log *logger.Logger) *Countdown {
	return &Countdown{
		log:   log,
		value: countdownNotScheduled,
		now:   time.Now,
	}
}

// SetTarget replaces the countdown target. A nil target stops the ticker
// and parks the output on the unscheduled sentinel.
func (c *Countdown) SetTarget(target *time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()

	if target == nil {
		c.target = nil
		c.value = countdownNotScheduled
		return
	}

	t := *target
	c.target = &t
	c.value = c.computeLocked()

	stop := make(chan struct{})
	c.stopCh = stop
	utils.GoSafe(func() { c.tick(stop) })
}

// Value returns the current countdown string.
func (c *Countdown) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Active reports whether a ticker is currently running.
func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCh != nil
}

// Stop cancels the ticker unconditionally. Safe to call repeatedly.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

func (c *Countdown) tick(stop chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stopCh != stop {
				// superseded by a newer target
				c.mu.Unlock()
				return
			}
			c.value = c.computeLocked()
			c.mu.Unlock()
		}
	}
}

func (c *Countdown) computeLocked() string {
	if c.target == nil {
		return countdownNotScheduled
	}
	if c.target.IsZero() {
		return countdownInvalidTime
	}
	return FormatRemaining(c.target.Sub(c.now()))
}
