// Package gologger bridges glog loggers into the go-job logger contract used
// by the transition queue worker.
package gologger

import (
	"context"
	"strings"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const DefaultName = "unifiedauth.jobs"

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	return glog.Resolve(name, provider, logger)
}

func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the glog pair and returns the go-job equivalents.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}

// WorkerLogHook writes one log line per worker event.
type WorkerLogHook struct {
	logger glog.Logger
}

func NewWorkerLogHook(logger glog.Logger) *WorkerLogHook {
	return &WorkerLogHook{logger: glog.Ensure(logger)}
}

func (h *WorkerLogHook) OnStart(_ context.Context, event worker.Event) {
	h.logger.Debug("unifiedauth job started", eventFields(event)...)
}

func (h *WorkerLogHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger.Info("unifiedauth job completed", eventFields(event)...)
}

func (h *WorkerLogHook) OnFailure(_ context.Context, event worker.Event) {
	h.logger.Error("unifiedauth job failed", eventFields(event)...)
}

func (h *WorkerLogHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger.Warn("unifiedauth job retry scheduled", eventFields(event)...)
}

func eventFields(event worker.Event) []any {
	fields := []any{"attempt", event.Attempt, "duration_ms", event.Duration.Milliseconds()}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message != nil {
		fields = append(fields, "job_id", message.JobID, "idempotency_key", message.IdempotencyKey)
	}
	if event.Delay > 0 {
		fields = append(fields, "delay_ms", event.Delay.Milliseconds())
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err.Error())
	}
	return fields
}

var _ worker.Hook = (*WorkerLogHook)(nil)
