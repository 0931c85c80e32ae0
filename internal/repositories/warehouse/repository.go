// Package warehouse persists raw extracts and the dimensional model to the
// Postgres warehouse.
package warehouse

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/nedl-data/nedl-etl/pkg/database"
	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

var (
	flatTransactionStruct = database.NewStruct(new(models.FlatTransaction))
	flatGrantorStruct     = database.NewStruct(new(models.FlatGrantor))
	flatGranteeStruct     = database.NewStruct(new(models.FlatGrantee))
	rawPropertyStruct     = database.NewStruct(new(models.RawProperty))

	dimPropertyStruct         = database.NewStruct(new(models.DimProperty))
	dimEntityStruct           = database.NewStruct(new(models.DimEntity))
	dimEntityIdentifierStruct = database.NewStruct(new(models.DimEntityIdentifier))
	factTransactionStruct     = database.NewStruct(new(models.FactTransaction))
	bridgePartyStruct         = database.NewStruct(new(models.BridgeTransactionParty))
	bridgeOwnerStruct         = database.NewStruct(new(models.BridgePropertyOwner))
)

// Repository writes to the warehouse. Raw tables append; analytics tables
// upsert so a retried load is idempotent.
type Repository struct {
	db          database.DB
	logger      ectologger.Logger
	environment string
	batchSize   int
}

func New(db database.DB, logger ectologger.Logger, environment string, batchSize int) *Repository {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Repository{
		db:          db,
		logger:      logger,
		environment: environment,
		batchSize:   batchSize,
	}
}

func (r *Repository) table(name string) string {
	return ResolveTable(r.environment, name)
}

// InsertRawTransactions appends flattened transactions to raw storage.
func (r *Repository) InsertRawTransactions(ctx context.Context, rows []models.FlatTransaction) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "warehouse.Repository.InsertRawTransactions")
	defer span.End()
	return insertBatch(ctx, r, flatTransactionStruct, r.table(TableRawTransactions), rows)
}

// InsertRawGrantors appends flattened grantor rows to raw storage.
func (r *Repository) InsertRawGrantors(ctx context.Context, rows []models.FlatGrantor) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "warehouse.Repository.InsertRawGrantors")
	defer span.End()
	return insertBatch(ctx, r, flatGrantorStruct, r.table(TableRawGrantors), rows)
}

// InsertRawGrantees appends flattened grantee rows to raw storage.
func (r *Repository) InsertRawGrantees(ctx context.Context, rows []models.FlatGrantee) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "warehouse.Repository.InsertRawGrantees")
	defer span.End()
	return insertBatch(ctx, r, flatGranteeStruct, r.table(TableRawGrantees), rows)
}

// InsertRawProperties appends extracted property records to raw storage.
func (r *Repository) InsertRawProperties(ctx context.Context, rows []models.RawProperty) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "warehouse.Repository.InsertRawProperties")
	defer span.End()
	return insertBatch(ctx, r, rawPropertyStruct, r.table(TableRawProperties), rows)
}

// LoadModel upserts all six dimensional tables and returns rows written per
// table. Each table upserts by its natural key, so a retried load after a
// partial failure converges instead of duplicating.
func (r *Repository) LoadModel(ctx context.Context, model *models.DimensionalModel) (map[string]int, error) {
	ctx, span := tracing.StartSpan(ctx, "warehouse.Repository.LoadModel")
	defer span.End()

	log := r.logger.WithContext(ctx)
	counts := make(map[string]int, 6)

	n, err := upsertBatch(ctx, r, dimPropertyStruct, r.table(TableDimProperty),
		[]string{"tax_assessor_id", "valid_from"}, model.DimProperty)
	if err != nil {
		return counts, err
	}
	counts["dim_property"] = n

	n, err = upsertBatch(ctx, r, dimEntityStruct, r.table(TableDimEntity),
		[]string{"canonical_entity_id", "valid_from"}, model.DimEntity)
	if err != nil {
		return counts, err
	}
	counts["dim_entity"] = n

	n, err = upsertBatch(ctx, r, dimEntityIdentifierStruct, r.table(TableDimEntityIdentifier),
		[]string{"identifier_type", "identifier_value"}, model.DimEntityIdentifier)
	if err != nil {
		return counts, err
	}
	counts["dim_entity_identifier"] = n

	n, err = upsertBatch(ctx, r, factTransactionStruct, r.table(TableFactTransaction),
		[]string{"recorder_id"}, model.FactTransaction)
	if err != nil {
		return counts, err
	}
	counts["fact_transaction"] = n

	n, err = upsertBatch(ctx, r, bridgePartyStruct, r.table(TableBridgeTransactionParty),
		[]string{"recorder_id", "party_role", "party_sequence"}, model.BridgeTransactionParty)
	if err != nil {
		return counts, err
	}
	counts["bridge_transaction_party"] = n

	n, err = upsertBatch(ctx, r, bridgeOwnerStruct, r.table(TableBridgePropertyOwner),
		[]string{"tax_assessor_id", "canonical_entity_id", "valid_from"}, model.BridgePropertyOwner)
	if err != nil {
		return counts, err
	}
	counts["bridge_property_owner"] = n

	log.WithFields(map[string]any{
		"tables":     len(counts),
		"total_rows": model.TotalRows(),
	}).Info("Loaded dimensional model")

	return counts, nil
}

func insertBatch[T any](ctx context.Context, r *Repository, s *database.Struct, table string, rows []T) (int, error) {
	total := 0
	for _, batch := range chunkRows(rows, r.batchSize) {
		ib := s.InsertInto(table, asAny(batch)...)
		query, args := ib.Build()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("table", table).Error("Failed to insert batch")
			return total, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to insert into %s: %v", table, err)
		}
		total += len(batch)
	}
	return total, nil
}

func upsertBatch[T any](ctx context.Context, r *Repository, s *database.Struct, table string, conflictColumns []string, rows []T) (int, error) {
	total := 0
	for _, batch := range chunkRows(rows, r.batchSize) {
		ib := s.InsertInto(table, asAny(batch)...)
		ub := ib.OnConflict(conflictColumns...)
		ub.Set(excludedAssignments(ub, s, conflictColumns)...)
		query, args := ib.Build()
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("table", table).Error("Failed to upsert batch")
			return total, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to upsert into %s: %v", table, err)
		}
		total += len(batch)
	}
	return total, nil
}

// excludedAssignments assigns every non-conflict column from the incoming row.
func excludedAssignments(ub *database.UpdateBuilder, s *database.Struct, conflictColumns []string) []string {
	conflict := make(map[string]struct{}, len(conflictColumns))
	for _, col := range conflictColumns {
		conflict[col] = struct{}{}
	}

	var assignments []string
	for _, col := range s.Columns() {
		if _, ok := conflict[col]; ok {
			continue
		}
		assignments = append(assignments, ub.Assign(col, database.Excluded(col)))
	}
	return assignments
}

func chunkRows[T any](rows []T, size int) [][]T {
	var batches [][]T
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[start:end])
	}
	return batches
}

func asAny[T any](rows []T) []any {
	values := make([]any, len(rows))
	for i := range rows {
		values[i] = &rows[i]
	}
	return values
}
