package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"court_flow_app_go/models"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Calendar decides which days count toward statutory terms
type Calendar interface {
	IsBusinessDay(day time.Time) bool
	// AddBusinessDays returns the nth business day after start (start excluded)
	AddBusinessDays(start time.Time, n int) time.Time
	// BusinessDaysBetween counts business days in (from, to]; negative when to precedes from
	BusinessDaysBetween(from, to time.Time) int
	// DateOf truncates t to midnight of its calendar date in the court's location
	DateOf(t time.Time) time.Time
}

// BusinessCalendar excludes Saturdays, Sundays and a configurable holiday set.
// It carries no built-in holiday list; the court loads its own.
type BusinessCalendar struct {
	loc      *time.Location
	mu       sync.RWMutex
	holidays map[string]struct{}
}

// NewBusinessCalendar creates a calendar for loc. A nil location means UTC.
func NewBusinessCalendar(loc *time.Location, holidays []time.Time) *BusinessCalendar {
	if loc == nil {
		loc = time.UTC
	}
	c := &BusinessCalendar{loc: loc, holidays: make(map[string]struct{})}
	for _, h := range holidays {
		c.AddHoliday(h)
	}
	return c
}

// NewBusinessCalendarForZone resolves an IANA zone name such as America/Bogota
func NewBusinessCalendarForZone(zone string, holidays []time.Time) (*BusinessCalendar, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load court timezone %q: %w", zone, err)
	}
	return NewBusinessCalendar(loc, holidays), nil
}

// Location returns the court's time zone
func (c *BusinessCalendar) Location() *time.Location {
	return c.loc
}

// AddHoliday registers a non-business date. Only the calendar date of h matters.
func (c *BusinessCalendar) AddHoliday(h time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holidays[h.Format(dateLayout)] = struct{}{}
}

// Holidays returns the registered holiday dates in ascending order
func (c *BusinessCalendar) Holidays() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.holidays))
	for k := range c.holidays {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadHolidays adds every row of the court_holidays table
func (c *BusinessCalendar) LoadHolidays(db *gorm.DB) (int, error) {
	var rows []models.CourtHoliday
	if err := db.Order("date ASC").Find(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to load court holidays: %w", err)
	}
	for _, r := range rows {
		c.AddHoliday(r.Date.UTC())
	}
	return len(rows), nil
}

func (c *BusinessCalendar) DateOf(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

func (c *BusinessCalendar) IsBusinessDay(day time.Time) bool {
	d := c.DateOf(day)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	c.mu.RLock()
	_, holiday := c.holidays[d.Format(dateLayout)]
	c.mu.RUnlock()
	return !holiday
}

func (c *BusinessCalendar) AddBusinessDays(start time.Time, n int) time.Time {
	d := c.DateOf(start)
	for added := 0; added < n; {
		d = d.AddDate(0, 0, 1)
		if c.IsBusinessDay(d) {
			added++
		}
	}
	return d
}

func (c *BusinessCalendar) BusinessDaysBetween(from, to time.Time) int {
	a, b := c.DateOf(from), c.DateOf(to)
	sign := 1
	if b.Before(a) {
		a, b = b, a
		sign = -1
	}
	count := 0
	for d := a.AddDate(0, 0, 1); !d.After(b); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return sign * count
}
