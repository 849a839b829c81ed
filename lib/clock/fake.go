// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only on Advance. It is safe for
// concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	alarms  []*alarm
	changed *sync.Cond
}

// alarm is one pending After, Sleep, or ticker deadline.
type alarm struct {
	due    time.Time
	ch     chan time.Time
	period time.Duration // zero for one-shot alarms
	off    bool
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.changed = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.addLocked(&alarm{due: c.now.Add(d), ch: ch})
	return ch
}

func (c *FakeClock) Sleep(d time.Duration) {
	if d > 0 {
		<-c.After(d)
	}
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker needs a positive period")
	}
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	a := &alarm{due: c.now.Add(d), ch: ch, period: d}
	c.addLocked(a)
	c.mu.Unlock()

	return &Ticker{
		C: ch,
		stop: func() {
			c.mu.Lock()
			a.off = true
			c.mu.Unlock()
		},
		reset: func(d time.Duration) {
			c.mu.Lock()
			defer c.mu.Unlock()
			a.period = d
			a.due = c.now.Add(d)
			if a.off {
				a.off = false
				c.addLocked(a)
			}
		},
	}
}

func (c *FakeClock) addLocked(a *alarm) {
	c.alarms = append(c.alarms, a)
	c.changed.Broadcast()
}

// Advance moves time forward by d and fires every alarm that falls due,
// earliest first. A ticker spanned by several periods fires once per
// period; sends that would block are dropped, as with time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		for _, a := range due {
			select {
			case a.ch <- target:
			default:
			}
		}
	}
}

// takeDue removes the alarms due at or before target, rearming tickers
// for their next period.
func (c *FakeClock) takeDue(target time.Time) []*alarm {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []*alarm
	pending := c.alarms[:0]
	for _, a := range c.alarms {
		switch {
		case a.off:
		case a.due.After(target):
			pending = append(pending, a)
		default:
			due = append(due, a)
		}
	}
	slices.SortStableFunc(due, func(x, y *alarm) int { return x.due.Compare(y.due) })
	for _, a := range due {
		if a.period > 0 {
			a.due = a.due.Add(a.period)
			pending = append(pending, a)
		}
	}
	clear(c.alarms[len(pending):])
	c.alarms = pending
	return due
}

// WaitForTimers blocks until at least n alarms are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount reports how many alarms are waiting to fire.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	n := 0
	for _, a := range c.alarms {
		if !a.off {
			n++
		}
	}
	return n
}
