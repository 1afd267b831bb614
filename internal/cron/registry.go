package cron

import (
	"context"
	"time"
)

// Job is one unit of scheduled maintenance run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type slot struct {
	job   Job
	every time.Duration
	next  time.Time
}

// Registry keeps each job's cadence and when it is next due.
// It is owned by the service loop and not safe for concurrent use.
type Registry struct {
	slots []*slot
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Schedule adds job to run every interval. A non-positive interval runs it on every tick.
// A newly scheduled job is due immediately.
func (r *Registry) Schedule(job Job, every time.Duration) *Registry {
	if job != nil {
		r.slots = append(r.slots, &slot{job: job, every: every})
	}
	return r
}

// Due returns the jobs whose turn has come at now, in scheduling order,
// and moves each of them to its next slot.
func (r *Registry) Due(now time.Time) []Job {
	var due []Job
	for _, s := range r.slots {
		if now.Before(s.next) {
			continue
		}
		due = append(due, s.job)
		s.next = now.Add(s.every)
	}
	return due
}

// Jobs lists every scheduled job.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.slots))
	for _, s := range r.slots {
		jobs = append(jobs, s.job)
	}
	return jobs
}
