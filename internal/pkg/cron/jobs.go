package cron

import (
	"context"
	"log/slog"
	"time"
)

type VacancyCycle interface {
	RunAll(ctx context.Context) error
}

type StaleFactMarker interface {
	MarkStaleOpenFacts(ctx context.Context) (int, error)
}

// Runner is a background task run to completion once per tick.
type Runner interface {
	Run(ctx context.Context) error
}

// JobIntervals configures WorkforceJobs. A zero interval disables the job.
type JobIntervals struct {
	VacancyCheck time.Duration
	URVPoll      time.Duration
	OutboxFlush  time.Duration
	StaleFacts   time.Duration
	// Timeout bounds every single run.
	Timeout time.Duration
}

type WorkforceJobs struct {
	vacancies VacancyCycle
	facts     StaleFactMarker
	urv       Runner
	outbox    Runner
}

// NewWorkforceJobs wires the periodic jobs. urv and outbox may be nil when the
// integration is not configured.
func NewWorkforceJobs(vacancies VacancyCycle, facts StaleFactMarker, urv, outbox Runner) *WorkforceJobs {
	return &WorkforceJobs{
		vacancies: vacancies,
		facts:     facts,
		urv:       urv,
		outbox:    outbox,
	}
}

func (j *WorkforceJobs) RegisterJobs(scheduler *Scheduler, iv JobIntervals) {
	scheduler.Add(&Job{Name: "vacancy_cycle", Interval: iv.VacancyCheck, Timeout: iv.Timeout, Fn: j.RunVacancyCycle})
	scheduler.Add(&Job{Name: "mark_stale_open_facts", Interval: iv.StaleFacts, Timeout: iv.Timeout, Fn: j.MarkStaleOpenFacts})
	if j.urv != nil {
		scheduler.Add(&Job{Name: "urv_poll", Interval: iv.URVPoll, Timeout: iv.Timeout, Fn: j.urv.Run})
	}
	if j.outbox != nil {
		scheduler.Add(&Job{Name: "outbox_flush", Interval: iv.OutboxFlush, Timeout: iv.Timeout, Fn: j.outbox.Run})
	}
}

func (j *WorkforceJobs) RunVacancyCycle(ctx context.Context) error {
	slog.Debug("Cron: Starting vacancy cycle")
	return j.vacancies.RunAll(ctx)
}

func (j *WorkforceJobs) MarkStaleOpenFacts(ctx context.Context) error {
	n, err := j.facts.MarkStaleOpenFacts(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Cron: Marked stale open fact days", "count", n)
	}
	return nil
}
