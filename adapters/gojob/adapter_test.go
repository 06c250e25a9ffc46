package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	"github.com/goliatone/go-unifiedauth/core"
)

func TestTransitionEncodingRoundTrip(t *testing.T) {
	occurredAt := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)
	original := core.TransitionEvent{
		Previous:   core.AuthMethodWallet,
		Current:    core.AuthMethodCredentials,
		Trigger:    core.TriggerCredentialsChange,
		OccurredAt: occurredAt,
		Metadata:   map[string]any{"service_name": "unifiedauth"},
	}

	msg := EncodeTransition(original)
	if msg.JobID != JobIDTransition || msg.DedupPolicy != DedupPolicyDrop {
		t.Fatalf("unexpected execution message %#v", msg)
	}
	if msg.IdempotencyKey != EncodeTransition(original).IdempotencyKey {
		t.Fatalf("expected stable idempotency key")
	}

	decoded, err := DecodeTransition(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Previous != original.Previous || decoded.Current != original.Current || decoded.Trigger != original.Trigger {
		t.Fatalf("unexpected decoded event %#v", decoded)
	}
	if !decoded.OccurredAt.Equal(occurredAt) {
		t.Fatalf("expected occurred_at %s, got %s", occurredAt, decoded.OccurredAt)
	}
	if decoded.Metadata["service_name"] != "unifiedauth" {
		t.Fatalf("expected metadata to survive, got %#v", decoded.Metadata)
	}
}

func TestDecodeTransition_RejectsMalformedMessages(t *testing.T) {
	valid := EncodeTransition(core.TransitionEvent{
		Previous:   core.AuthMethodNone,
		Current:    core.AuthMethodWallet,
		Trigger:    core.TriggerConnectWallet,
		OccurredAt: time.Now(),
	})
	cases := map[string]func(*job.ExecutionMessage){
		"job id":      func(m *job.ExecutionMessage) { m.JobID = "other" },
		"method":      func(m *job.ExecutionMessage) { m.Parameters[paramCurrent] = "passkey" },
		"trigger":     func(m *job.ExecutionMessage) { m.Parameters[paramTrigger] = "poll" },
		"occurred_at": func(m *job.ExecutionMessage) { m.Parameters[paramOccurredAt] = "yesterday" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			msg := *valid
			msg.Parameters = copyAnyMap(valid.Parameters)
			mutate(&msg)
			if _, err := DecodeTransition(&msg); err == nil {
				t.Fatalf("expected decode error")
			}
		})
	}
	if _, err := DecodeTransition(nil); err == nil {
		t.Fatalf("expected nil message error")
	}
}

func TestTransitionPublisher_EnqueuesEvents(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	publisher := NewTransitionPublisher(enqueuer)
	err := publisher.ObserveTransition(context.Background(), core.TransitionEvent{
		Previous:   core.AuthMethodNone,
		Current:    core.AuthMethodWallet,
		Trigger:    core.TriggerWalletChange,
		OccurredAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.JobID != JobIDTransition {
		t.Fatalf("expected transition job to be enqueued, got %#v", enqueuer.last)
	}
	if err := NewTransitionPublisher(nil).ObserveTransition(context.Background(), core.TransitionEvent{}); err == nil {
		t.Fatalf("expected missing enqueuer error")
	}
}

func TestTransitionConsumer_AcksDeliveredEvents(t *testing.T) {
	ctx := context.Background()
	delivery := &stubQueueDelivery{msg: EncodeTransition(core.TransitionEvent{
		Previous:   core.AuthMethodWallet,
		Current:    core.AuthMethodNone,
		Trigger:    core.TriggerLogout,
		OccurredAt: time.Now(),
	})}
	var observed []core.TransitionEvent
	metrics := &capturingMetrics{}
	consumer, err := NewTransitionConsumer(&stubQueueDequeuer{delivery: delivery},
		core.TransitionObserverFunc(func(_ context.Context, event core.TransitionEvent) error {
			observed = append(observed, event)
			return nil
		}),
		WithWorkerHook(NewMetricsHook(metrics)),
	)
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}

	if err := consumer.ProcessNext(ctx, 1); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !delivery.acked || delivery.nacked {
		t.Fatalf("expected ack only, got acked=%v nacked=%v", delivery.acked, delivery.nacked)
	}
	if len(observed) != 1 || observed[0].Trigger != core.TriggerLogout {
		t.Fatalf("unexpected observed events %#v", observed)
	}
	if metrics.counts["started"] != 1 || metrics.counts["success"] != 1 {
		t.Fatalf("unexpected worker metrics %#v", metrics.counts)
	}
}

func TestTransitionConsumer_RetryPolicyBoundaries(t *testing.T) {
	ctx := context.Background()
	msg := EncodeTransition(core.TransitionEvent{
		Previous:   core.AuthMethodNone,
		Current:    core.AuthMethodCredentials,
		Trigger:    core.TriggerCredentialsChange,
		OccurredAt: time.Now(),
	})
	failing := core.TransitionObserverFunc(func(context.Context, core.TransitionEvent) error {
		return errors.New("audit store down")
	})
	policy := RetryPolicy{MaxAttempts: 3, MaxDelay: 10 * time.Second, DeadLetterOnMax: true}
	metrics := &capturingMetrics{}

	first := &stubQueueDelivery{msg: msg}
	consumer, err := NewTransitionConsumer(&stubQueueDequeuer{delivery: first}, failing,
		WithRetryPolicy(policy), WithWorkerHook(NewMetricsHook(metrics)))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	if err := consumer.ProcessNext(ctx, 1); err != nil {
		t.Fatalf("process attempt 1: %v", err)
	}
	if !first.nackOpts.Requeue || first.nackOpts.DeadLetter {
		t.Fatalf("expected requeue before max attempts, got %#v", first.nackOpts)
	}

	last := &stubQueueDelivery{msg: msg}
	consumer.dequeuer = &stubQueueDequeuer{delivery: last}
	if err := consumer.ProcessNext(ctx, 3); err != nil {
		t.Fatalf("process attempt 3: %v", err)
	}
	if last.nackOpts.Requeue || !last.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %#v", last.nackOpts)
	}
	if metrics.counts["retry"] != 1 || metrics.counts["failure"] != 1 {
		t.Fatalf("unexpected worker metrics %#v", metrics.counts)
	}
}

func TestTransitionConsumer_DeadLettersUndecodableMessages(t *testing.T) {
	delivery := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: "something.else"}}
	consumer, err := NewTransitionConsumer(&stubQueueDequeuer{delivery: delivery},
		core.TransitionObserverFunc(func(context.Context, core.TransitionEvent) error {
			t.Fatalf("observer must not run for undecodable messages")
			return nil
		}))
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	if err := consumer.ProcessNext(context.Background(), 1); err != nil {
		t.Fatalf("process: %v", err)
	}
	if !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter nack, got %#v", delivery.nackOpts)
	}
}

func TestRetryPolicy_NormalizeAttempt(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 2, MaxDelay: time.Second}
	out := policy.NormalizeAttempt(queue.NackOptions{Delay: time.Minute, Reason: " slow "}, 1)
	if out.Delay != time.Second || !out.Requeue || out.Reason != "slow" {
		t.Fatalf("unexpected normalized options %#v", out)
	}
	out = policy.NormalizeAttempt(queue.NackOptions{Requeue: true}, 2)
	if !out.Requeue || out.DeadLetter {
		t.Fatalf("expected requeue fallback without dead letter policy, got %#v", out)
	}
	out = policy.NormalizeAttempt(queue.NackOptions{Delay: -time.Second, DeadLetter: true, Requeue: true}, 0)
	if out.Requeue || out.Delay != 0 {
		t.Fatalf("expected explicit dead letter to win, got %#v", out)
	}
}

func TestNewTransitionConsumer_RequiresDependencies(t *testing.T) {
	observer := core.TransitionObserverFunc(func(context.Context, core.TransitionEvent) error { return nil })
	if _, err := NewTransitionConsumer(nil, observer); err == nil {
		t.Fatalf("expected missing dequeuer error")
	}
	if _, err := NewTransitionConsumer(&stubQueueDequeuer{}, nil); err == nil {
		t.Fatalf("expected missing observer error")
	}
}

var _ worker.Hook = (*MetricsHook)(nil)

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nacked   bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nacked = true
	s.nackOpts = opts
	return nil
}

type capturingMetrics struct {
	counts map[string]int
}

func (m *capturingMetrics) IncCounter(_ context.Context, _ string, _ int64, tags map[string]string) {
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[tags["status"]]++
}

func (m *capturingMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}
