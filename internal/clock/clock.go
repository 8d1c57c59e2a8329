// Package clock отдает текущее время в часовом поясе организации.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Real системные часы, усеченные до секунды
type Real struct {
	loc *time.Location
}

func New(loc *time.Location) *Real {
	return &Real{loc: loc}
}

func (c *Real) Now() time.Time {
	return time.Now().In(c.loc).Truncate(time.Second)
}

// Manual часы для тестов, время двигается вручную
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Manual) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StartOfDay возвращает полночь дня t в его же часовом поясе
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfMonth возвращает первое число месяца t
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
