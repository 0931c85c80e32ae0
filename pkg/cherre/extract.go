package cherre

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

const (
	tableRecorder        = "recorder_v2"
	tableTaxAssessor     = "tax_assessor_v2"
	tableAssessorHistory = "tax_assessor_history_v2"
	tableOwnerUnmask     = "usa_owner_unmask_v2"
)

const transactionFields = `
	recorder_id
	tax_assessor_id
	document_recorded_date
	document_instrument_date
	document_number_formatted
	document_type_code
	document_amount
	transfer_tax_amount
	arms_length_code
	inter_family_flag
	is_foreclosure_auction_sale
	is_quit_claim
	new_construction_flag
	resale_flag
	property_address
	property_city
	property_state
	property_zip
	cherre_ingest_datetime
	recorder_grantor_v2__recorder_id {
		cherre_recorder_grantor_pk
		grantor_name
		grantor_address
		grantor_entity_code
		grantor_first_name
		grantor_last_name
	}
	recorder_grantee_v2__recorder_id {
		cherre_recorder_grantee_pk
		grantee_name
		grantee_address
		grantee_entity_code
		grantee_first_name
		grantee_last_name
	}`

// Extractor pulls the four raw record sets for one date-range run. The
// multifamily use-code allow-list filters the property query server-side,
// which in turn scopes history and owner extraction.
type Extractor struct {
	client              *Client
	batchSize           int
	multifamilyUseCodes []string
}

func NewExtractor(client *Client, batchSize int, multifamilyUseCodes []string) *Extractor {
	return &Extractor{
		client:              client,
		batchSize:           batchSize,
		multifamilyUseCodes: multifamilyUseCodes,
	}
}

// Transactions fetches recorder records whose recorded date falls inside the
// inclusive range, with grantors and grantees embedded.
func (e *Extractor) Transactions(ctx context.Context, startDate, endDate string) ([]models.RawTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "cherre.Extractor.Transactions")
	defer span.End()

	log := e.client.logger.WithContext(ctx)
	log.WithFields(map[string]any{
		"start_date": startDate,
		"end_date":   endDate,
	}).Info("Extracting transactions")

	transactions, err := fetchPages[models.RawTransaction](ctx, e.client, tableRecorder, func(limit, offset int) string {
		return fmt.Sprintf(`
		query {
			%s(
				limit: %d
				offset: %d
				where: {document_recorded_date: {_gte: %q, _lte: %q}}
				order_by: {document_recorded_date: asc}
			) {
				%s
			}
		}`, tableRecorder, limit, offset, startDate, endDate, transactionFields)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract transactions: %w", err)
	}

	log.WithField("count", len(transactions)).Info("Extracted transactions")
	return transactions, nil
}

// Properties fetches current assessor attributes for the properties the
// transactions touch, filtered to the multifamily allow-list.
func (e *Extractor) Properties(ctx context.Context, transactions []models.RawTransaction) ([]models.RawProperty, error) {
	ctx, span := tracing.StartSpan(ctx, "cherre.Extractor.Properties")
	defer span.End()

	log := e.client.logger.WithContext(ctx)

	taxIDs := uniqueTransactionTaxIDs(transactions)
	log.WithField("unique_properties", len(taxIDs)).Info("Extracting multifamily properties")

	var properties []models.RawProperty
	for _, batch := range chunk(taxIDs, e.batchSize) {
		query := fmt.Sprintf(`
		query {
			%s(
				where: {
					tax_assessor_id: {_in: %s}
					property_use_standardized_code: {_in: %s}
				}
			) {
				tax_assessor_id
				assessor_parcel_number_raw
				address
				city
				state
				zip
				situs_county
				property_use_standardized_code
				year_built
				building_sq_ft
				lot_size_sq_ft
				units_count
				assessed_value_total
				market_value_total
				latitude
				longitude
			}
		}`, tableTaxAssessor, jsonList(batch), jsonList(e.multifamilyUseCodes))

		page, err := fetchOne[models.RawProperty](ctx, e.client, tableTaxAssessor, query)
		if err != nil {
			return nil, fmt.Errorf("failed to extract properties: %w", err)
		}
		properties = append(properties, page...)
	}

	log.WithField("count", len(properties)).Info("Extracted multifamily properties")
	return properties, nil
}

// PropertyHistory fetches annual assessor snapshots for the extracted
// properties, ordered by source PK so same-year duplicates deduplicate
// deterministically downstream.
func (e *Extractor) PropertyHistory(ctx context.Context, properties []models.RawProperty) ([]models.RawPropertyHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "cherre.Extractor.PropertyHistory")
	defer span.End()

	log := e.client.logger.WithContext(ctx)

	taxIDs := uniquePropertyTaxIDs(properties)
	log.WithField("unique_properties", len(taxIDs)).Info("Extracting property history")

	var history []models.RawPropertyHistory
	for _, batch := range chunk(taxIDs, e.batchSize) {
		query := fmt.Sprintf(`
		query {
			%s(
				where: {tax_assessor_id: {_in: %s}}
				order_by: {cherre_tax_assessor_history_v2_pk: asc}
			) {
				tax_assessor_id
				assessor_snap_shot_year
				assessed_value_total
				market_value_total
				lot_size_sq_ft
				building_sq_ft
				cherre_tax_assessor_history_v2_pk
				cherre_ingest_datetime
			}
		}`, tableAssessorHistory, jsonList(batch))

		page, err := fetchOne[models.RawPropertyHistory](ctx, e.client, tableAssessorHistory, query)
		if err != nil {
			return nil, fmt.Errorf("failed to extract property history: %w", err)
		}
		history = append(history, page...)
	}

	log.WithField("count", len(history)).Info("Extracted property history")
	return history, nil
}

// Owners fetches unmasked owner records for the extracted properties.
func (e *Extractor) Owners(ctx context.Context, properties []models.RawProperty) ([]models.RawOwner, error) {
	ctx, span := tracing.StartSpan(ctx, "cherre.Extractor.Owners")
	defer span.End()

	log := e.client.logger.WithContext(ctx)

	taxIDs := uniquePropertyTaxIDs(properties)
	log.WithField("unique_properties", len(taxIDs)).Info("Extracting owners")

	var owners []models.RawOwner
	for _, batch := range chunk(taxIDs, e.batchSize) {
		query := fmt.Sprintf(`
		query {
			%s(where: {tax_assessor_id: {_in: %s}}) {
				cherre_usa_owner_unmask_pk
				owner_id
				owner_name
				owner_type
				owner_state
				has_confidence
				occurrences_count
				last_seen_date
				tax_assessor_id
			}
		}`, tableOwnerUnmask, jsonList(batch))

		page, err := fetchOne[models.RawOwner](ctx, e.client, tableOwnerUnmask, query)
		if err != nil {
			return nil, fmt.Errorf("failed to extract owners: %w", err)
		}
		owners = append(owners, page...)
	}

	log.WithField("count", len(owners)).Info("Extracted owners")
	return owners, nil
}

// uniqueTransactionTaxIDs collects distinct non-empty tax assessor ids in
// first-seen order so batch boundaries are stable run to run.
func uniqueTransactionTaxIDs(transactions []models.RawTransaction) []string {
	seen := make(map[string]struct{}, len(transactions))
	var ids []string
	for _, t := range transactions {
		if t.TaxAssessorID == nil || *t.TaxAssessorID == "" {
			continue
		}
		if _, ok := seen[*t.TaxAssessorID]; ok {
			continue
		}
		seen[*t.TaxAssessorID] = struct{}{}
		ids = append(ids, *t.TaxAssessorID)
	}
	return ids
}

func uniquePropertyTaxIDs(properties []models.RawProperty) []string {
	seen := make(map[string]struct{}, len(properties))
	var ids []string
	for _, p := range properties {
		if p.TaxAssessorID == "" {
			continue
		}
		if _, ok := seen[p.TaxAssessorID]; ok {
			continue
		}
		seen[p.TaxAssessorID] = struct{}{}
		ids = append(ids, p.TaxAssessorID)
	}
	return ids
}

func chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

func jsonList(values []string) string {
	encoded, _ := json.Marshal(values)
	return string(encoded)
}
