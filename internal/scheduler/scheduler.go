// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs registered by the core
// and by modules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic work.
type Job func(ctx context.Context) error

// SourceCore is the source of jobs registered by the application itself.
const SourceCore = "core"

// ErrJobNotFound is returned for unknown source/name pairs.
var ErrJobNotFound = errors.New("job not found")

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Source      string
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	LastError   string
	Runs        int64
	NextRun     time.Time
}

type registeredJob struct {
	info    JobInfo
	entryID cron.EntryID
	job     Job
	running sync.Mutex
}

// Scheduler wraps a cron instance and tracks job runs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.RWMutex
	jobs map[string]*registeredJob

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Each run gets a context bounded by timeout.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger{logger}))),
		logger:  logger,
		timeout: timeout,
		jobs:    make(map[string]*registeredJob),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ValidateSchedule checks a standard five-field cron expression.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

func jobKey(source, name string) string {
	return source + ":" + name
}

// Register adds a job under source/name. Registering the same key twice fails.
func (s *Scheduler) Register(source, name, description, schedule string, job Job) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	key := jobKey(source, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[key]; exists {
		return fmt.Errorf("job %s already registered", key)
	}

	rj := &registeredJob{
		info: JobInfo{Source: source, Name: name, Description: description, Schedule: schedule},
		job:  job,
	}
	id, err := s.cron.AddFunc(schedule, func() { _ = s.run(s.ctx, rj) })
	if err != nil {
		return fmt.Errorf("adding job %s: %w", key, err)
	}
	rj.entryID = id
	s.jobs[key] = rj

	s.logger.Debug("registered scheduled job", "source", source, "name", name, "schedule", schedule)
	return nil
}

// Unregister removes a job; unknown keys are ignored.
func (s *Scheduler) Unregister(source, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := jobKey(source, name)
	if rj, ok := s.jobs[key]; ok {
		s.cron.Remove(rj.entryID)
		delete(s.jobs, key)
	}
}

// Trigger runs a job immediately and returns its error.
func (s *Scheduler) Trigger(ctx context.Context, source, name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[jobKey(source, name)]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobKey(source, name))
	}
	return s.run(ctx, rj)
}

// run executes rj unless a previous run is still going.
func (s *Scheduler) run(parent context.Context, rj *registeredJob) error {
	if !rj.running.TryLock() {
		s.logger.Warn("scheduled job still running, skipping", "source", rj.info.Source, "name", rj.info.Name)
		return nil
	}
	defer rj.running.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	err := rj.job(ctx)

	s.mu.Lock()
	rj.info.LastRun = start
	rj.info.Runs++
	rj.info.LastError = ""
	if err != nil {
		rj.info.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed",
			"source", rj.info.Source,
			"name", rj.info.Name,
			"duration", time.Since(start),
			"error", err,
		)
		return err
	}
	s.logger.Debug("scheduled job finished", "source", rj.info.Source, "name", rj.info.Name, "duration", time.Since(start))
	return nil
}

// List returns all jobs sorted by source then name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		info := rj.info
		info.NextRun = s.cron.Entry(rj.entryID).Next
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// cronLogger adapts slog to cron.Logger for panic recovery output.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
