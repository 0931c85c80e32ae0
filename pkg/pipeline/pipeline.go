// Package pipeline orchestrates one ETL run: extract from Cherre, land raw
// records, build the dimensional model, validate it, and load the warehouse
// behind the data-quality gate.
package pipeline

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/nedl-data/nedl-etl/pkg/events"
	"github.com/nedl-data/nedl-etl/pkg/flatten"
	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
	"github.com/nedl-data/nedl-etl/pkg/transform"
	"github.com/nedl-data/nedl-etl/pkg/validation"
)

// Extractor pulls the four raw record sets for a date range.
type Extractor interface {
	Transactions(ctx context.Context, startDate, endDate string) ([]models.RawTransaction, error)
	Properties(ctx context.Context, transactions []models.RawTransaction) ([]models.RawProperty, error)
	PropertyHistory(ctx context.Context, properties []models.RawProperty) ([]models.RawPropertyHistory, error)
	Owners(ctx context.Context, properties []models.RawProperty) ([]models.RawOwner, error)
}

// Warehouse persists raw extracts and the dimensional model.
type Warehouse interface {
	InsertRawTransactions(ctx context.Context, rows []models.FlatTransaction) (int, error)
	InsertRawGrantors(ctx context.Context, rows []models.FlatGrantor) (int, error)
	InsertRawGrantees(ctx context.Context, rows []models.FlatGrantee) (int, error)
	InsertRawProperties(ctx context.Context, rows []models.RawProperty) (int, error)
	LoadModel(ctx context.Context, model *models.DimensionalModel) (map[string]int, error)
}

// GraphProjector mirrors ownership into the graph database.
type GraphProjector interface {
	ProjectOwnership(ctx context.Context, model *models.DimensionalModel) error
}

// Pipeline wires the run phases together. Projector is optional; everything
// else is required.
type Pipeline struct {
	extractor Extractor
	warehouse Warehouse
	validator *validation.Engine
	emitter   *events.Emitter
	projector GraphProjector
	logger    ectologger.Logger

	properties *transform.PropertyDimensionBuilder
	entities   *transform.EntityDimensionBuilder
	facts      *transform.FactTransactionBuilder
	bridges    *transform.BridgeBuilder
}

func New(
	extractor Extractor,
	warehouse Warehouse,
	validator *validation.Engine,
	emitter *events.Emitter,
	projector GraphProjector,
	logger ectologger.Logger,
) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		warehouse:  warehouse,
		validator:  validator,
		emitter:    emitter,
		projector:  projector,
		logger:     logger,
		properties: transform.NewPropertyDimensionBuilder(logger),
		entities:   transform.NewEntityDimensionBuilder(logger),
		facts:      transform.NewFactTransactionBuilder(logger),
		bridges:    transform.NewBridgeBuilder(logger),
	}
}

// RunResult summarizes one pipeline run.
type RunResult struct {
	RunID     string
	StartDate string
	EndDate   string

	Extracted   int
	Transformed int

	Report      *validation.Report
	Loaded      map[string]int
	LoadSkipped bool
	SkipReason  string
}

// Run executes one batch for an inclusive date range. A data-quality FAIL
// suppresses loading and emits an alert event, but the run itself still
// completes; warnings load normally. Hard errors abort with a batch.failed
// event.
func (p *Pipeline) Run(ctx context.Context, startDate, endDate string) (*RunResult, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	runID := uuid.New().String()
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":     runID,
		"start_date": startDate,
		"end_date":   endDate,
	})
	log.Info("Starting ETL run")

	result := &RunResult{
		RunID:     runID,
		StartDate: startDate,
		EndDate:   endDate,
	}

	model, extracted, err := p.buildModel(ctx, startDate, endDate)
	if err != nil {
		p.emitFailed(ctx, runID, startDate, endDate, err)
		return nil, err
	}
	result.Extracted = extracted
	result.Transformed = model.TotalRows()

	report := p.validator.Validate(ctx, model, &validation.DateRange{Start: startDate, End: endDate})
	result.Report = report

	if report.Failed() > 0 {
		log.WithFields(map[string]any{
			"failed": report.Failed(),
			"total":  report.Total(),
		}).Error("Data quality gate rejected the batch; skipping load")

		if emitErr := p.emitter.EmitDQFailure(ctx, runID, startDate, endDate, report); emitErr != nil {
			log.WithError(emitErr).Warn("Failed to emit data quality alert")
		}
		result.LoadSkipped = true
		result.SkipReason = fmt.Sprintf("%d data quality checks failed", report.Failed())
		return result, nil
	}

	loaded, err := p.warehouse.LoadModel(ctx, model)
	if err != nil {
		p.emitFailed(ctx, runID, startDate, endDate, err)
		return nil, err
	}
	result.Loaded = loaded

	if p.projector != nil {
		if err := p.projector.ProjectOwnership(ctx, model); err != nil {
			// the warehouse load already succeeded; the graph is a
			// derived projection and can be rebuilt on the next run
			log.WithError(err).Warn("Graph projection failed")
		}
	}

	if emitErr := p.emitter.EmitBatchCompleted(ctx, runID, startDate, endDate, events.BatchSummary{
		Extracted:   result.Extracted,
		Transformed: result.Transformed,
		Loaded:      loaded,
		DQTotal:     report.Total(),
		DQPassed:    report.Passed(),
		DQWarnings:  report.Warnings(),
	}); emitErr != nil {
		log.WithError(emitErr).Warn("Failed to emit batch completed event")
	}

	log.WithField("loaded_tables", len(loaded)).Info("ETL run complete")
	return result, nil
}

func (p *Pipeline) emitFailed(ctx context.Context, runID, startDate, endDate string, cause error) {
	if emitErr := p.emitter.EmitBatchFailed(ctx, runID, startDate, endDate, cause.Error()); emitErr != nil {
		p.logger.WithContext(ctx).WithError(emitErr).Warn("Failed to emit batch failed event")
	}
}

// buildModel runs extract, raw landing, and all transform phases, returning
// the built model and the raw record count.
func (p *Pipeline) buildModel(ctx context.Context, startDate, endDate string) (*models.DimensionalModel, int, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.buildModel")
	defer span.End()

	log := p.logger.WithContext(ctx)

	transactions, err := p.extractor.Transactions(ctx, startDate, endDate)
	if err != nil {
		return nil, 0, fmt.Errorf("extract transactions: %w", err)
	}
	properties, err := p.extractor.Properties(ctx, transactions)
	if err != nil {
		return nil, 0, fmt.Errorf("extract properties: %w", err)
	}
	history, err := p.extractor.PropertyHistory(ctx, properties)
	if err != nil {
		return nil, 0, fmt.Errorf("extract property history: %w", err)
	}
	owners, err := p.extractor.Owners(ctx, properties)
	if err != nil {
		return nil, 0, fmt.Errorf("extract owners: %w", err)
	}

	extracted := len(transactions) + len(properties) + len(history) + len(owners)
	log.WithFields(map[string]any{
		"transactions": len(transactions),
		"properties":   len(properties),
		"history":      len(history),
		"owners":       len(owners),
	}).Info("Extraction complete")

	flat := flatten.Transactions(transactions)
	if _, err := p.warehouse.InsertRawTransactions(ctx, flat.Transactions); err != nil {
		return nil, extracted, fmt.Errorf("land raw transactions: %w", err)
	}
	if _, err := p.warehouse.InsertRawGrantors(ctx, flat.Grantors); err != nil {
		return nil, extracted, fmt.Errorf("land raw grantors: %w", err)
	}
	if _, err := p.warehouse.InsertRawGrantees(ctx, flat.Grantees); err != nil {
		return nil, extracted, fmt.Errorf("land raw grantees: %w", err)
	}
	if _, err := p.warehouse.InsertRawProperties(ctx, properties); err != nil {
		return nil, extracted, fmt.Errorf("land raw properties: %w", err)
	}

	propertyDim, err := p.properties.Build(ctx, properties, history)
	if err != nil {
		return nil, extracted, fmt.Errorf("build property dimension: %w", err)
	}
	entityDim, err := p.entities.Build(ctx, owners)
	if err != nil {
		return nil, extracted, fmt.Errorf("build entity dimension: %w", err)
	}
	factTable, err := p.facts.Build(ctx, flat.Transactions, propertyDim.KeyLookup)
	if err != nil {
		return nil, extracted, fmt.Errorf("build fact table: %w", err)
	}
	partyBridge, err := p.bridges.BuildTransactionParty(ctx, flat.Transactions, flat.Grantors, flat.Grantees, factTable.KeyLookup)
	if err != nil {
		return nil, extracted, fmt.Errorf("build transaction party bridge: %w", err)
	}
	ownerBridge, err := p.bridges.BuildPropertyOwner(ctx, owners, propertyDim.KeyLookup, entityDim.KeyLookup)
	if err != nil {
		return nil, extracted, fmt.Errorf("build property owner bridge: %w", err)
	}

	model := &models.DimensionalModel{
		DimProperty:            propertyDim.Rows,
		DimEntity:              entityDim.Rows,
		DimEntityIdentifier:    entityDim.Identifiers,
		FactTransaction:        factTable.Rows,
		BridgeTransactionParty: partyBridge,
		BridgePropertyOwner:    ownerBridge,
	}

	log.WithFields(map[string]any{
		"dim_property":             len(model.DimProperty),
		"dim_entity":               len(model.DimEntity),
		"dim_entity_identifier":    len(model.DimEntityIdentifier),
		"fact_transaction":         len(model.FactTransaction),
		"bridge_transaction_party": len(model.BridgeTransactionParty),
		"bridge_property_owner":    len(model.BridgePropertyOwner),
	}).Info("Transform complete")

	return model, extracted, nil
}
