// Package gojob moves reconciler transitions through a go-job queue so audit
// observers can run outside the request path.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	"github.com/goliatone/go-unifiedauth/core"
)

const (
	JobIDTransition = "unifiedauth.transition.record"

	DedupPolicyDrop = job.DeduplicationPolicy("drop")

	paramPrevious   = "previous_method"
	paramCurrent    = "current_method"
	paramTrigger    = "trigger"
	paramOccurredAt = "occurred_at"
	paramMetadata   = "metadata"
)

// RetryPolicy bounds how often a failed transition delivery is retried.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		out.DeadLetter = out.DeadLetter || p.DeadLetterOnMax
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// EncodeTransition builds the execution message for one transition. The
// idempotency key is stable for the same event.
func EncodeTransition(event core.TransitionEvent) *job.ExecutionMessage {
	occurredAt := event.OccurredAt.UTC()
	return &job.ExecutionMessage{
		JobID:      JobIDTransition,
		ScriptPath: JobIDTransition,
		Parameters: map[string]any{
			paramPrevious:   string(event.Previous),
			paramCurrent:    string(event.Current),
			paramTrigger:    string(event.Trigger),
			paramOccurredAt: occurredAt.Format(time.RFC3339Nano),
			paramMetadata:   copyAnyMap(event.Metadata),
		},
		IdempotencyKey: fmt.Sprintf("%s:%s:%s:%d",
			event.Trigger, event.Previous, event.Current, occurredAt.UnixNano()),
		DedupPolicy: DedupPolicyDrop,
	}
}

func DecodeTransition(msg *job.ExecutionMessage) (core.TransitionEvent, error) {
	if msg == nil {
		return core.TransitionEvent{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDTransition {
		return core.TransitionEvent{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	previous, err := core.ParseAuthMethod(stringParam(msg.Parameters, paramPrevious))
	if err != nil {
		return core.TransitionEvent{}, fmt.Errorf("gojob: decode previous method: %w", err)
	}
	current, err := core.ParseAuthMethod(stringParam(msg.Parameters, paramCurrent))
	if err != nil {
		return core.TransitionEvent{}, fmt.Errorf("gojob: decode current method: %w", err)
	}
	trigger, err := core.ParseTrigger(stringParam(msg.Parameters, paramTrigger))
	if err != nil {
		return core.TransitionEvent{}, fmt.Errorf("gojob: decode trigger: %w", err)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, stringParam(msg.Parameters, paramOccurredAt))
	if err != nil {
		return core.TransitionEvent{}, fmt.Errorf("gojob: decode occurred_at: %w", err)
	}
	metadata, _ := msg.Parameters[paramMetadata].(map[string]any)
	return core.TransitionEvent{
		Previous:   previous,
		Current:    current,
		Trigger:    trigger,
		OccurredAt: occurredAt,
		Metadata:   copyAnyMap(metadata),
	}, nil
}

// TransitionPublisher is a transition observer that enqueues every event.
type TransitionPublisher struct {
	enqueuer queue.Enqueuer
}

func NewTransitionPublisher(enqueuer queue.Enqueuer) *TransitionPublisher {
	return &TransitionPublisher{enqueuer: enqueuer}
}

func (p *TransitionPublisher) ObserveTransition(ctx context.Context, event core.TransitionEvent) error {
	if p == nil || p.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	return p.enqueuer.Enqueue(ctx, EncodeTransition(event))
}

// TransitionConsumer hands queued transitions to an observer, acking on
// success and nacking through the retry policy on failure.
type TransitionConsumer struct {
	dequeuer queue.Dequeuer
	observer core.TransitionObserver
	policy   RetryPolicy
	hook     worker.Hook
	now      func() time.Time
}

type ConsumerOption func(*TransitionConsumer)

func WithRetryPolicy(policy RetryPolicy) ConsumerOption {
	return func(c *TransitionConsumer) {
		c.policy = policy
	}
}

func WithWorkerHook(hook worker.Hook) ConsumerOption {
	return func(c *TransitionConsumer) {
		c.hook = hook
	}
}

func NewTransitionConsumer(
	dequeuer queue.Dequeuer,
	observer core.TransitionObserver,
	opts ...ConsumerOption,
) (*TransitionConsumer, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	if observer == nil {
		return nil, fmt.Errorf("gojob: transition observer is required")
	}
	consumer := &TransitionConsumer{
		dequeuer: dequeuer,
		observer: observer,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(consumer)
		}
	}
	return consumer, nil
}

// ProcessNext handles a single delivery. attempt is the delivery attempt
// counter as tracked by the caller.
func (c *TransitionConsumer) ProcessNext(ctx context.Context, attempt int) error {
	if c == nil || c.dequeuer == nil {
		return fmt.Errorf("gojob: consumer is not configured")
	}
	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}

	event := worker.Event{
		Delivery:  delivery,
		Message:   delivery.Message(),
		Attempt:   attempt,
		StartedAt: c.now(),
	}
	c.notify(ctx, "start", event)

	transition, err := DecodeTransition(event.Message)
	if err != nil {
		event.Err = err
		event.Duration = c.now().Sub(event.StartedAt)
		c.notify(ctx, "failure", event)
		return delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: err.Error()})
	}

	if err := c.observer.ObserveTransition(ctx, transition); err != nil {
		opts := c.policy.NormalizeAttempt(queue.NackOptions{Requeue: true, Reason: err.Error()}, attempt)
		event.Err = err
		event.Delay = opts.Delay
		event.Duration = c.now().Sub(event.StartedAt)
		if opts.Requeue {
			c.notify(ctx, "retry", event)
		} else {
			c.notify(ctx, "failure", event)
		}
		return delivery.Nack(ctx, opts)
	}

	event.Duration = c.now().Sub(event.StartedAt)
	c.notify(ctx, "success", event)
	return delivery.Ack(ctx)
}

func (c *TransitionConsumer) notify(ctx context.Context, stage string, event worker.Event) {
	if c.hook == nil {
		return
	}
	switch stage {
	case "start":
		c.hook.OnStart(ctx, event)
	case "success":
		c.hook.OnSuccess(ctx, event)
	case "retry":
		c.hook.OnRetry(ctx, event)
	default:
		c.hook.OnFailure(ctx, event)
	}
}

// MetricsHook reports worker events through a core.MetricsRecorder.
type MetricsHook struct {
	recorder core.MetricsRecorder
}

func NewMetricsHook(recorder core.MetricsRecorder) *MetricsHook {
	if recorder == nil {
		recorder = core.NopMetricsRecorder{}
	}
	return &MetricsHook{recorder: recorder}
}

func (h *MetricsHook) OnStart(ctx context.Context, event worker.Event) {
	h.record(ctx, event, "started")
}

func (h *MetricsHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.record(ctx, event, "success")
}

func (h *MetricsHook) OnFailure(ctx context.Context, event worker.Event) {
	h.record(ctx, event, "failure")
}

func (h *MetricsHook) OnRetry(ctx context.Context, event worker.Event) {
	h.record(ctx, event, "retry")
}

func (h *MetricsHook) record(ctx context.Context, event worker.Event, status string) {
	if h == nil || h.recorder == nil {
		return
	}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	tags := map[string]string{"status": status}
	if message != nil {
		tags["job_id"] = strings.TrimSpace(message.JobID)
	}
	h.recorder.IncCounter(ctx, "unifiedauth.transition_job.total", 1, tags)
	if status != "started" {
		h.recorder.ObserveHistogram(ctx, "unifiedauth.transition_job.duration_ms",
			float64(event.Duration.Milliseconds()), tags)
	}
}

func stringParam(params map[string]any, key string) string {
	value, _ := params[key].(string)
	return value
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.TransitionObserver = (*TransitionPublisher)(nil)
	_ worker.Hook             = (*MetricsHook)(nil)
)
