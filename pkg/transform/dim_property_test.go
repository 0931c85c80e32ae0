package transform

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nedl-data/nedl-etl/pkg/models"
)

func TestPropertyDimension_SCDType2FromHistory(t *testing.T) {
	builder := NewPropertyDimensionBuilder(testLogger())

	properties := []models.RawProperty{
		{TaxAssessorID: "P1", UseCode: strPtr("1104"), Address: strPtr("1 Main St")},
	}
	history := []models.RawPropertyHistory{
		{TaxAssessorID: "P1", SnapshotYear: 2022, AssessedValueTotal: f64Ptr(100), SourcePK: 1},
		{TaxAssessorID: "P1", SnapshotYear: 2023, AssessedValueTotal: f64Ptr(120), SourcePK: 2},
	}

	dim, err := builder.Build(context.Background(), properties, history)
	require.NoError(t, err)
	require.Len(t, dim.Rows, 2)

	first := dim.Rows[0]
	assert.Equal(t, "2022-01-01", first.ValidFrom)
	require.NotNil(t, first.ValidTo)
	assert.Equal(t, "2023-01-01", *first.ValidTo)
	assert.False(t, first.IsCurrent)
	require.NotNil(t, first.AssessedValue)
	assert.Equal(t, 100.0, *first.AssessedValue)

	second := dim.Rows[1]
	assert.Equal(t, "2023-01-01", second.ValidFrom)
	assert.Nil(t, second.ValidTo)
	assert.True(t, second.IsCurrent)
	require.NotNil(t, second.AssessedValue)
	assert.Equal(t, 120.0, *second.AssessedValue)

	// Lookup points at the current row only.
	require.Len(t, dim.KeyLookup, 1)
	assert.Equal(t, second.PropertyKey, dim.KeyLookup["P1"])
}

func TestPropertyDimension_NoHistorySingleCurrentRow(t *testing.T) {
	builder := NewPropertyDimensionBuilder(testLogger())

	properties := []models.RawProperty{
		{TaxAssessorID: "P1", AssessedValueTotal: f64Ptr(500), BuildingSqFt: f64Ptr(2400)},
	}

	dim, err := builder.Build(context.Background(), properties, nil)
	require.NoError(t, err)
	require.Len(t, dim.Rows, 1)

	row := dim.Rows[0]
	assert.Equal(t, models.DefaultValidFrom, row.ValidFrom)
	assert.Nil(t, row.ValidTo)
	assert.True(t, row.IsCurrent)
	require.NotNil(t, row.AssessedValue)
	assert.Equal(t, 500.0, *row.AssessedValue)
	require.NotNil(t, row.BuildingSqFt)
	assert.Equal(t, 2400.0, *row.BuildingSqFt)
}

func TestPropertyDimension_SameYearDuplicatesHighestPKWins(t *testing.T) {
	builder := NewPropertyDimensionBuilder(testLogger())

	properties := []models.RawProperty{{TaxAssessorID: "P1"}}
	history := []models.RawPropertyHistory{
		{TaxAssessorID: "P1", SnapshotYear: 2023, AssessedValueTotal: f64Ptr(100), SourcePK: 10},
		{TaxAssessorID: "P1", SnapshotYear: 2023, AssessedValueTotal: f64Ptr(150), SourcePK: 20},
		{TaxAssessorID: "P1", SnapshotYear: 2023, AssessedValueTotal: f64Ptr(90), SourcePK: 5},
	}

	dim, err := builder.Build(context.Background(), properties, history)
	require.NoError(t, err)
	require.Len(t, dim.Rows, 1)
	require.NotNil(t, dim.Rows[0].AssessedValue)
	assert.Equal(t, 150.0, *dim.Rows[0].AssessedValue)
	assert.True(t, dim.Rows[0].IsCurrent)
}

func TestPropertyDimension_HistoryFallsBackToCurrentAttributes(t *testing.T) {
	builder := NewPropertyDimensionBuilder(testLogger())

	properties := []models.RawProperty{
		{TaxAssessorID: "P1", BuildingSqFt: f64Ptr(1800), LotSizeSqFt: f64Ptr(4000)},
	}
	history := []models.RawPropertyHistory{
		{TaxAssessorID: "P1", SnapshotYear: 2023, LotSizeSqFt: f64Ptr(4100), SourcePK: 1},
	}

	dim, err := builder.Build(context.Background(), properties, history)
	require.NoError(t, err)
	require.Len(t, dim.Rows, 1)

	row := dim.Rows[0]
	require.NotNil(t, row.BuildingSqFt)
	assert.Equal(t, 1800.0, *row.BuildingSqFt, "missing history measure falls back to current record")
	require.NotNil(t, row.LandSqFt)
	assert.Equal(t, 4100.0, *row.LandSqFt, "history measure wins where present")
}

func TestPropertyDimension_ValidityWindowsContiguous(t *testing.T) {
	builder := NewPropertyDimensionBuilder(testLogger())

	properties := []models.RawProperty{{TaxAssessorID: "P1"}, {TaxAssessorID: "P2"}}
	history := []models.RawPropertyHistory{
		{TaxAssessorID: "P1", SnapshotYear: 2021, SourcePK: 1},
		{TaxAssessorID: "P1", SnapshotYear: 2023, SourcePK: 2},
		{TaxAssessorID: "P1", SnapshotYear: 2022, SourcePK: 3},
	}

	dim, err := builder.Build(context.Background(), properties, history)
	require.NoError(t, err)

	var p1Rows []models.DimProperty
	for _, row := range dim.Rows {
		if row.TaxAssessorID == "P1" {
			p1Rows = append(p1Rows, row)
		}
	}
	require.Len(t, p1Rows, 3)
	assert.True(t, sort.SliceIsSorted(p1Rows, func(i, j int) bool {
		return p1Rows[i].ValidFrom < p1Rows[j].ValidFrom
	}))
	for i := 0; i < len(p1Rows)-1; i++ {
		require.NotNil(t, p1Rows[i].ValidTo)
		assert.Equal(t, *p1Rows[i].ValidTo, p1Rows[i+1].ValidFrom)
		assert.False(t, p1Rows[i].IsCurrent)
	}
	last := p1Rows[len(p1Rows)-1]
	assert.Nil(t, last.ValidTo)
	assert.True(t, last.IsCurrent)
}

func TestPropertyDimension_OneCurrentRowPerNaturalKey(t *testing.T) {
	builder := NewPropertyDimensionBuilder(testLogger())

	properties := []models.RawProperty{{TaxAssessorID: "P1"}, {TaxAssessorID: "P2"}, {TaxAssessorID: "P3"}}
	history := []models.RawPropertyHistory{
		{TaxAssessorID: "P1", SnapshotYear: 2022, SourcePK: 1},
		{TaxAssessorID: "P1", SnapshotYear: 2023, SourcePK: 2},
		{TaxAssessorID: "P2", SnapshotYear: 2023, SourcePK: 3},
	}

	dim, err := builder.Build(context.Background(), properties, history)
	require.NoError(t, err)

	currentByKey := make(map[string]int)
	for _, row := range dim.Rows {
		if row.IsCurrent {
			currentByKey[row.TaxAssessorID]++
			assert.Nil(t, row.ValidTo)
		}
	}
	assert.Equal(t, map[string]int{"P1": 1, "P2": 1, "P3": 1}, currentByKey)
}

func TestPropertyDimension_SurrogateKeysDense(t *testing.T) {
	builder := NewPropertyDimensionBuilder(testLogger())

	properties := []models.RawProperty{{TaxAssessorID: "P1"}, {TaxAssessorID: "P2"}}

	dim, err := builder.Build(context.Background(), properties, nil)
	require.NoError(t, err)
	require.Len(t, dim.Rows, 2)
	assert.Equal(t, int64(1), dim.Rows[0].PropertyKey)
	assert.Equal(t, int64(2), dim.Rows[1].PropertyKey)
}
