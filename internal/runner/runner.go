// Package runner expands hosts into check tasks and executes them through a
// bounded worker pool, retrying each task's probe up to its attempt budget.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"netcheck/internal/models"
	"netcheck/internal/probe"
)

// Runner executes a task set with bounded parallelism. Concurrency is a
// hard cap on simultaneously outstanding probes; within a worker a task's
// retry attempts are strictly sequential with no sleep between them, since
// the failed attempt has already consumed up to one timeout.
type Runner struct {
	Prober      probe.Prober
	Timeout     time.Duration
	Retries     int // extra attempts beyond the first
	Concurrency int
	Logger      hclog.Logger
}

// Run executes every task exactly once at the wrapper level and returns one
// result per task, in task order. Each worker writes only to its own task's
// slot, so no collection lock is needed. Run returns only after every task
// has produced a result; completion order across tasks is unspecified.
func (r *Runner) Run(ctx context.Context, tasks []models.CheckTask) []models.CheckResult {
	results := make([]models.CheckResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	workers := r.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = r.runTask(ctx, tasks[idx])
			}
		}()
	}

	for idx := range tasks {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return results
}

// runTask is the retry wrapper: up to Retries+1 attempts, stopping at the
// first success. The recorded latency belongs to the attempt that decided
// the outcome.
func (r *Runner) runTask(ctx context.Context, task models.CheckTask) models.CheckResult {
	res := models.CheckResult{
		Host:   task.Host,
		Method: task.Method,
	}
	if task.Method == models.MethodTCP {
		port := task.Port
		res.Port = &port
	}

	var (
		latency time.Duration
		err     error
	)
	for attempt := 0; attempt <= r.Retries; attempt++ {
		res.Attempts = attempt + 1
		latency, err = r.Prober.Probe(ctx, task, r.Timeout)
		if err == nil {
			res.Success = true
			break
		}
		r.logger().Debug("probe attempt failed",
			"target", task.Label(), "attempt", res.Attempts, "error", err)
	}

	res.LatencyMS = float64(latency) / float64(time.Millisecond)
	if err != nil {
		msg := err.Error()
		res.Error = &msg
	}
	return res
}

func (r *Runner) logger() hclog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return hclog.NewNullLogger()
}

// BuildTasks expands the inputs into the task set: the cross product of
// hosts and ports for TCP (host-list order, then ascending port), one task
// per host for ping.
func BuildTasks(hosts []string, ports []int, method models.Method) []models.CheckTask {
	if method == models.MethodPing {
		tasks := make([]models.CheckTask, 0, len(hosts))
		for _, h := range hosts {
			tasks = append(tasks, models.CheckTask{Host: h, Method: method})
		}
		return tasks
	}

	tasks := make([]models.CheckTask, 0, len(hosts)*len(ports))
	for _, h := range hosts {
		for _, p := range ports {
			tasks = append(tasks, models.CheckTask{Host: h, Port: p, Method: method})
		}
	}
	return tasks
}
