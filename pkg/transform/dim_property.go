package transform

import (
	"context"
	"fmt"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

// PropertyDimension is the output of the property dimension builder: the
// SCD Type 2 rows plus a lookup from tax_assessor_id to the surrogate key of
// the current row. The lookup has exactly one entry per natural key.
type PropertyDimension struct {
	Rows      []models.DimProperty
	KeyLookup map[string]int64
}

// PropertyDimensionBuilder builds dim_property with SCD Type 2 versioning
// from current property attributes and annual assessor snapshots.
type PropertyDimensionBuilder struct {
	logger ectologger.Logger
}

func NewPropertyDimensionBuilder(logger ectologger.Logger) *PropertyDimensionBuilder {
	return &PropertyDimensionBuilder{logger: logger}
}

// Build emits one dimension row per deduplicated history snapshot, windowed
// by snapshot year, or a single current row when a property has no history.
// Numeric measures come from the history row where present, falling back to
// the current attribute record.
func (b *PropertyDimensionBuilder) Build(
	ctx context.Context,
	properties []models.RawProperty,
	history []models.RawPropertyHistory,
) (*PropertyDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "transform.PropertyDimensionBuilder.Build")
	defer span.End()

	log := b.logger.WithContext(ctx)
	log.WithFields(map[string]any{
		"properties": len(properties),
		"history":    len(history),
	}).Info("Building dim_property")

	// Index current attributes by natural key. Later duplicates replace
	// earlier ones but keep the first-seen position so output order is
	// deterministic for identical input ordering.
	order := make([]string, 0, len(properties))
	current := make(map[string]models.RawProperty, len(properties))
	for _, p := range properties {
		if _, seen := current[p.TaxAssessorID]; !seen {
			order = append(order, p.TaxAssessorID)
		}
		current[p.TaxAssessorID] = p
	}

	histories := dedupeHistory(history)

	keys := NewKeyGen()
	dim := &PropertyDimension{
		Rows:      make([]models.DimProperty, 0, len(properties)),
		KeyLookup: make(map[string]int64, len(properties)),
	}

	for _, taxID := range order {
		prop := current[taxID]
		snaps := histories[taxID]

		if len(snaps) == 0 {
			key, err := keys.Next()
			if err != nil {
				return nil, err
			}
			dim.Rows = append(dim.Rows, newPropertyRow(key, prop, nil, models.DefaultValidFrom, nil, true))
			continue
		}

		for i, snap := range snaps {
			key, err := keys.Next()
			if err != nil {
				return nil, err
			}

			isCurrent := i == len(snaps)-1
			validFrom := yearStart(snap.SnapshotYear)
			var validTo *string
			if !isCurrent {
				to := yearStart(snaps[i+1].SnapshotYear)
				validTo = &to
			}

			dim.Rows = append(dim.Rows, newPropertyRow(key, prop, &snap, validFrom, validTo, isCurrent))
		}
	}

	// Lookup from current rows only. Duplicate current rows per natural key
	// should not occur; the DQ consistency check catches violations.
	for _, row := range dim.Rows {
		if row.IsCurrent {
			dim.KeyLookup[row.TaxAssessorID] = row.PropertyKey
		}
	}

	log.WithFields(map[string]any{
		"rows":              len(dim.Rows),
		"unique_properties": len(dim.KeyLookup),
	}).Info("Built dim_property")

	return dim, nil
}

// dedupeHistory groups snapshots by natural key, keeps the record with the
// highest source PK per (key, year), and sorts each group ascending by year.
func dedupeHistory(history []models.RawPropertyHistory) map[string][]models.RawPropertyHistory {
	latest := make(map[string]map[int]models.RawPropertyHistory)
	for _, h := range history {
		years, ok := latest[h.TaxAssessorID]
		if !ok {
			years = make(map[int]models.RawPropertyHistory)
			latest[h.TaxAssessorID] = years
		}
		if prev, ok := years[h.SnapshotYear]; !ok || h.SourcePK > prev.SourcePK {
			years[h.SnapshotYear] = h
		}
	}

	out := make(map[string][]models.RawPropertyHistory, len(latest))
	for taxID, years := range latest {
		snaps := make([]models.RawPropertyHistory, 0, len(years))
		for _, h := range years {
			snaps = append(snaps, h)
		}
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].SnapshotYear < snaps[j].SnapshotYear })
		out[taxID] = snaps
	}
	return out
}

func newPropertyRow(
	key int64,
	prop models.RawProperty,
	snap *models.RawPropertyHistory,
	validFrom string,
	validTo *string,
	isCurrent bool,
) models.DimProperty {
	row := models.DimProperty{
		PropertyKey:   key,
		TaxAssessorID: prop.TaxAssessorID,
		ParcelNumber:  prop.ParcelNumber,
		Address:       prop.Address,
		City:          prop.City,
		State:         prop.State,
		Zip:           prop.Zip,
		County:        prop.County,
		UseCode:       prop.UseCode,
		YearBuilt:     prop.YearBuilt,
		BuildingSqFt:  prop.BuildingSqFt,
		LandSqFt:      prop.LotSizeSqFt,
		UnitsCount:    prop.UnitsCount,
		AssessedValue: prop.AssessedValueTotal,
		MarketValue:   prop.MarketValueTotal,
		Latitude:      prop.Latitude,
		Longitude:     prop.Longitude,
		ValidFrom:     validFrom,
		ValidTo:       validTo,
		IsCurrent:     isCurrent,
		SourceSystem:  models.SourceSystemCherre,
	}

	if snap != nil {
		if snap.BuildingSqFt != nil {
			row.BuildingSqFt = snap.BuildingSqFt
		}
		if snap.LotSizeSqFt != nil {
			row.LandSqFt = snap.LotSizeSqFt
		}
		if snap.AssessedValueTotal != nil {
			row.AssessedValue = snap.AssessedValueTotal
		}
		if snap.MarketValueTotal != nil {
			row.MarketValue = snap.MarketValueTotal
		}
	}

	return row
}

func yearStart(year int) string {
	return fmt.Sprintf("%04d-01-01", year)
}
