package graph

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

const projectionBatchSize = 500

// Projector mirrors the ownership side of the dimensional model into the
// graph: (:Property)-[:OWNED_BY]->(:Entity), merged by natural key so
// re-projection is idempotent.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{
		client: client,
		logger: logger,
	}
}

const mergePropertiesCypher = `
UNWIND $rows AS row
MERGE (p:Property {tax_assessor_id: row.tax_assessor_id})
SET p.address = row.address,
    p.city = row.city,
    p.state = row.state,
    p.use_code = row.use_code`

const mergeEntitiesCypher = `
UNWIND $rows AS row
MERGE (e:Entity {canonical_entity_id: row.canonical_entity_id})
SET e.name = row.name,
    e.entity_type = row.entity_type,
    e.confidence_score = row.confidence_score`

const mergeOwnershipCypher = `
UNWIND $rows AS row
MATCH (p:Property {tax_assessor_id: row.tax_assessor_id})
MATCH (e:Entity {canonical_entity_id: row.canonical_entity_id})
MERGE (p)-[r:OWNED_BY]->(e)
SET r.sequence = row.sequence,
    r.valid_from = row.valid_from,
    r.is_current = row.is_current`

// ProjectOwnership upserts property nodes, entity nodes, and the OWNED_BY
// relationships derived from the property-owner bridge. Only current
// dimension rows become nodes.
func (p *Projector) ProjectOwnership(ctx context.Context, model *models.DimensionalModel) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectOwnership")
	defer span.End()

	log := p.logger.WithContext(ctx)

	properties := currentPropertyRows(model.DimProperty)
	entities := currentEntityRows(model.DimEntity)
	ownerships := ownershipRows(model)

	if err := p.mergeBatches(ctx, mergePropertiesCypher, properties); err != nil {
		return err
	}
	if err := p.mergeBatches(ctx, mergeEntitiesCypher, entities); err != nil {
		return err
	}
	if err := p.mergeBatches(ctx, mergeOwnershipCypher, ownerships); err != nil {
		return err
	}

	log.WithFields(map[string]any{
		"properties": len(properties),
		"entities":   len(entities),
		"ownerships": len(ownerships),
	}).Info("Projected ownership graph")

	return nil
}

func (p *Projector) mergeBatches(ctx context.Context, cypher string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += projectionBatchSize {
		end := start + projectionBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return tx.Run(ctx, cypher, map[string]any{"rows": batch})
		})
		if err != nil {
			p.logger.WithContext(ctx).WithError(err).Error("Failed to project graph batch")
			return err
		}
	}
	return nil
}

func currentPropertyRows(dim []models.DimProperty) []map[string]any {
	var rows []map[string]any
	for _, p := range dim {
		if !p.IsCurrent {
			continue
		}
		rows = append(rows, map[string]any{
			"tax_assessor_id": p.TaxAssessorID,
			"address":         strValue(p.Address),
			"city":            strValue(p.City),
			"state":           strValue(p.State),
			"use_code":        strValue(p.UseCode),
		})
	}
	return rows
}

func currentEntityRows(dim []models.DimEntity) []map[string]any {
	var rows []map[string]any
	for _, e := range dim {
		if !e.IsCurrent {
			continue
		}
		rows = append(rows, map[string]any{
			"canonical_entity_id": e.CanonicalEntityID,
			"name":                strValue(e.CanonicalEntityName),
			"entity_type":         strValue(e.EntityType),
			"confidence_score":    e.ConfidenceScore,
		})
	}
	return rows
}

// ownershipRows resolves bridge surrogate keys back to natural keys, since
// the graph merges on natural identity.
func ownershipRows(model *models.DimensionalModel) []map[string]any {
	propertyByKey := make(map[int64]string, len(model.DimProperty))
	for _, p := range model.DimProperty {
		propertyByKey[p.PropertyKey] = p.TaxAssessorID
	}
	entityByKey := make(map[int64]string, len(model.DimEntity))
	for _, e := range model.DimEntity {
		entityByKey[e.EntityKey] = e.CanonicalEntityID
	}

	var rows []map[string]any
	for _, b := range model.BridgePropertyOwner {
		taxID, ok := propertyByKey[b.PropertyKey]
		if !ok {
			continue
		}
		entityID, ok := entityByKey[b.EntityKey]
		if !ok {
			continue
		}
		rows = append(rows, map[string]any{
			"tax_assessor_id":     taxID,
			"canonical_entity_id": entityID,
			"sequence":            b.OwnershipSequence,
			"valid_from":          b.ValidFrom,
			"is_current":          b.IsCurrent,
		})
	}
	return rows
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
