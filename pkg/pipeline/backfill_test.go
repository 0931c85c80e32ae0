package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthFromKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "thirty one days", key: "2024-01", wantStart: "2024-01-01", wantEnd: "2024-01-31"},
		{name: "leap february", key: "2024-02", wantStart: "2024-02-01", wantEnd: "2024-02-29"},
		{name: "non leap february", key: "2023-02", wantStart: "2023-02-01", wantEnd: "2023-02-28"},
		{name: "thirty days", key: "2024-04", wantStart: "2024-04-01", wantEnd: "2024-04-30"},
		{name: "december rolls the year", key: "2023-12", wantStart: "2023-12-01", wantEnd: "2023-12-31"},
		{name: "bad key", key: "2024-13", wantErr: true},
		{name: "not a key", key: "january", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			month, err := MonthFromKey(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.key, month.Key)
			assert.Equal(t, tt.wantStart, month.StartDate)
			assert.Equal(t, tt.wantEnd, month.EndDate)
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	t.Run("inclusive range across a year boundary", func(t *testing.T) {
		months, err := MonthsBetween("2023-11", "2024-02")
		require.NoError(t, err)

		keys := make([]string, 0, len(months))
		for _, m := range months {
			keys = append(keys, m.Key)
		}
		assert.Equal(t, []string{"2023-11", "2023-12", "2024-01", "2024-02"}, keys)
	})

	t.Run("single month", func(t *testing.T) {
		months, err := MonthsBetween("2024-06", "2024-06")
		require.NoError(t, err)
		require.Len(t, months, 1)
		assert.Equal(t, "2024-06-01", months[0].StartDate)
		assert.Equal(t, "2024-06-30", months[0].EndDate)
	})

	t.Run("reversed range", func(t *testing.T) {
		_, err := MonthsBetween("2024-06", "2024-01")
		require.Error(t, err)
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := MonthsBetween("2024", "2024-06")
		require.Error(t, err)
	})
}

func TestBackfill_RunsOneBatchPerMonth(t *testing.T) {
	extractor := &fakeExtractor{}
	warehouse := &fakeWarehouse{}
	p, publisher := newTestPipeline(extractor, warehouse, nil)

	results, err := p.Backfill(context.Background(), "2024-01", "2024-03")
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Len(t, extractor.calls, 3)
	assert.Equal(t, extractCall{startDate: "2024-01-01", endDate: "2024-01-31"}, extractor.calls[0])
	assert.Equal(t, extractCall{startDate: "2024-02-01", endDate: "2024-02-29"}, extractor.calls[1])
	assert.Equal(t, extractCall{startDate: "2024-03-01", endDate: "2024-03-31"}, extractor.calls[2])

	for i, r := range results {
		assert.Equal(t, extractor.calls[i].startDate, r.Month.StartDate)
		require.NotNil(t, r.Result)
		assert.False(t, r.Result.LoadSkipped)
	}

	// every month emits its own completion event
	require.Len(t, publisher.published, 3)
}

func TestBackfill_StopsAtFirstHardFailure(t *testing.T) {
	extractor := &fakeExtractor{}
	warehouse := &fakeWarehouse{loadErr: assert.AnError}
	p, _ := newTestPipeline(extractor, warehouse, nil)

	results, err := p.Backfill(context.Background(), "2024-01", "2024-03")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backfill month 2024-01")
	assert.Empty(t, results)
	assert.Len(t, extractor.calls, 1)
}
