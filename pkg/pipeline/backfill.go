package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

// Month is one calendar-month chunk of a backfill, identified by its
// "YYYY-MM" key and bounded by the first and last day of the month.
type Month struct {
	Key       string
	StartDate string
	EndDate   string
}

// MonthFromKey expands a "YYYY-MM" key into its inclusive date bounds.
func MonthFromKey(key string) (Month, error) {
	start, err := time.Parse("2006-01", key)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month key %q: %w", key, err)
	}
	end := start.AddDate(0, 1, -1)
	return Month{
		Key:       key,
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
	}, nil
}

// MonthsBetween lists every month from startKey through endKey inclusive.
func MonthsBetween(startKey, endKey string) ([]Month, error) {
	start, err := time.Parse("2006-01", startKey)
	if err != nil {
		return nil, fmt.Errorf("invalid month key %q: %w", startKey, err)
	}
	end, err := time.Parse("2006-01", endKey)
	if err != nil {
		return nil, fmt.Errorf("invalid month key %q: %w", endKey, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("month range %s..%s is reversed", startKey, endKey)
	}

	var months []Month
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 1, 0) {
		month, err := MonthFromKey(cursor.Format("2006-01"))
		if err != nil {
			return nil, err
		}
		months = append(months, month)
	}
	return months, nil
}

// BackfillResult pairs each month chunk with its run outcome.
type BackfillResult struct {
	Month  Month
	Result *RunResult
}

// Backfill replays the pipeline one calendar month at a time across an
// inclusive "YYYY-MM" range. The first hard failure stops the backfill;
// months already completed are reported alongside the error.
func (p *Pipeline) Backfill(ctx context.Context, startKey, endKey string) ([]BackfillResult, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Backfill")
	defer span.End()

	months, err := MonthsBetween(startKey, endKey)
	if err != nil {
		return nil, err
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"start_month": startKey,
		"end_month":   endKey,
		"months":      len(months),
	})
	log.Info("Starting backfill")

	results := make([]BackfillResult, 0, len(months))
	for _, month := range months {
		runResult, err := p.Run(ctx, month.StartDate, month.EndDate)
		if err != nil {
			return results, fmt.Errorf("backfill month %s: %w", month.Key, err)
		}
		results = append(results, BackfillResult{Month: month, Result: runResult})
	}

	log.Info("Backfill complete")
	return results, nil
}
