// Package events emits pipeline run lifecycle events: batch completion,
// batch failure, and data-quality gate decisions.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/nedl-data/nedl-etl/pkg/kafka"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
	"github.com/nedl-data/nedl-etl/pkg/validation"
)

// Event types carried on the pipeline topic.
const (
	EventBatchCompleted = "batch.completed"
	EventBatchFailed    = "batch.failed"
	EventDQFailure      = "dq.failure"
)

// Publisher is the producer surface the emitter needs.
type Publisher interface {
	PublishPipelineEvent(ctx context.Context, event *kafka.PipelineEvent) error
}

// Emitter publishes run lifecycle events. A nil publisher disables emission,
// so callers never need to branch on whether Kafka is configured.
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// BatchSummary is the payload for batch completion events.
type BatchSummary struct {
	Extracted   int            `json:"extracted"`
	Transformed int            `json:"transformed"`
	Loaded      map[string]int `json:"loaded,omitempty"`
	DQTotal     int            `json:"dq_total"`
	DQPassed    int            `json:"dq_passed"`
	DQWarnings  int            `json:"dq_warnings"`
}

// EmitBatchCompleted reports a successfully loaded batch.
func (e *Emitter) EmitBatchCompleted(ctx context.Context, runID, startDate, endDate string, summary BatchSummary) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitBatchCompleted")
	defer span.End()

	return e.emit(ctx, EventBatchCompleted, runID, startDate, endDate, summary)
}

// EmitBatchFailed reports a batch that aborted before loading.
func (e *Emitter) EmitBatchFailed(ctx context.Context, runID, startDate, endDate, reason string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitBatchFailed")
	defer span.End()

	return e.emit(ctx, EventBatchFailed, runID, startDate, endDate, map[string]string{"reason": reason})
}

// DQFailurePayload carries the failed checks for alerting automations.
type DQFailurePayload struct {
	FailedCount  int                `json:"failed_count"`
	TotalChecks  int                `json:"total_checks"`
	FailedChecks []validation.Check `json:"failed_checks"`
}

// EmitDQFailure reports a data-quality gate rejection with the failing
// checks attached.
func (e *Emitter) EmitDQFailure(ctx context.Context, runID, startDate, endDate string, report *validation.Report) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDQFailure")
	defer span.End()

	payload := DQFailurePayload{
		FailedCount:  report.Failed(),
		TotalChecks:  report.Total(),
		FailedChecks: report.FailedChecks(),
	}
	return e.emit(ctx, EventDQFailure, runID, startDate, endDate, payload)
}

func (e *Emitter) emit(ctx context.Context, eventType, runID, startDate, endDate string, payload any) error {
	if e.publisher == nil {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &kafka.PipelineEvent{
		EventType: eventType,
		RunID:     runID,
		StartDate: startDate,
		EndDate:   endDate,
		Payload:   data,
	}

	if err := e.publisher.PublishPipelineEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithField("event_type", eventType).Error("Failed to emit pipeline event")
		return err
	}
	return nil
}
