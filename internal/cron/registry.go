package cron

import (
	"context"
	"fmt"
)

// Job is one unit of scheduled maintenance. Run reports how many rows it
// touched so the worker can export throughput.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Registry keeps jobs in registration order. Names label metrics and logs,
// so they must be unique.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

// Register adds job. Nil jobs are ignored so optional jobs can be passed
// unconditionally; a duplicate name panics, like http.ServeMux.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	if _, dup := r.names[job.Name()]; dup {
		panic(fmt.Sprintf("cron: job %q registered twice", job.Name()))
	}
	r.names[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
}

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
