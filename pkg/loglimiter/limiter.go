// Package loglimiter throttles repeated log lines per key.
package loglimiter

import (
	"sync"
	"time"
)

type entry struct {
	last       time.Time
	suppressed int
}

type Limiter struct {
	mux    sync.Mutex
	window time.Duration
	logs   map[string]*entry
	now    func() time.Time
}

func NewLimiter(window time.Duration) *Limiter {
	return &Limiter{
		window: window,
		logs:   make(map[string]*entry),
		now:    time.Now,
	}
}

// Allow reports whether a line for key may be logged. When it may, it also
// returns how many lines for key were held back since the last allowed one.
func (l *Limiter) Allow(key string) (bool, int) {
	l.mux.Lock()
	defer l.mux.Unlock()

	now := l.now()
	e, ok := l.logs[key]
	if !ok {
		l.logs[key] = &entry{last: now}
		return true, 0
	}
	if now.Sub(e.last) >= l.window {
		suppressed := e.suppressed
		e.last, e.suppressed = now, 0
		return true, suppressed
	}
	e.suppressed++
	return false, 0
}
