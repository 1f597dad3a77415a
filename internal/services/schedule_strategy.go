// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring template
// scheduling. Each frequency has its own scheduler encapsulating how
// the next generation date is computed.
package services

import (
	"fmt"

	"libros/internal/core"
)

// Scheduler is the strategy interface for advancing a recurring
// template after a generation.
type Scheduler interface {
	// Next returns the generation date that follows the given one.
	Next(after core.Date) core.Date
}

// DailyScheduler advances one calendar day.
type DailyScheduler struct{}

func (DailyScheduler) Next(after core.Date) core.Date {
	return core.Date{Time: after.AddDate(0, 0, 1)}
}

// WeeklyScheduler advances seven calendar days.
type WeeklyScheduler struct{}

func (WeeklyScheduler) Next(after core.Date) core.Date {
	return core.Date{Time: after.AddDate(0, 0, 7)}
}

// MonthlyScheduler advances one month. Overflow normalizes the way
// time.AddDate does: a Jan 31 anchor lands on Mar 2/3, consistent with
// how the console has always rolled dates.
type MonthlyScheduler struct{}

func (MonthlyScheduler) Next(after core.Date) core.Date {
	return core.Date{Time: after.AddDate(0, 1, 0)}
}

// YearlyScheduler advances one year.
type YearlyScheduler struct{}

func (YearlyScheduler) Next(after core.Date) core.Date {
	return core.Date{Time: after.AddDate(1, 0, 0)}
}

// schedulers maps frequencies to their strategies for O(1) lookup.
var schedulers = map[core.Frequency]Scheduler{
	core.Daily:   DailyScheduler{},
	core.Weekly:  WeeklyScheduler{},
	core.Monthly: MonthlyScheduler{},
	core.Yearly:  YearlyScheduler{},
}

// GetScheduler returns the scheduler for a frequency, or an error for
// an unknown one.
func GetScheduler(frequency core.Frequency) (Scheduler, error) {
	s, ok := schedulers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return s, nil
}

// RegisterScheduler registers a custom scheduler for a new frequency,
// allowing extension without touching the processor.
func RegisterScheduler(frequency core.Frequency, s Scheduler) {
	schedulers[frequency] = s
}
