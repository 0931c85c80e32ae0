package validation

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

// DateRange bounds the expected transaction dates, inclusive on both ends.
// A nil range skips the date-window consistency check.
type DateRange struct {
	Start string
	End   string
}

// Engine runs the data-quality battery. The multifamily use-code allow-list
// is injected so the business checks carry no ambient configuration.
type Engine struct {
	logger  ectologger.Logger
	mfCodes map[string]struct{}
}

func NewEngine(logger ectologger.Logger, multifamilyUseCodes []string) *Engine {
	codes := make(map[string]struct{}, len(multifamilyUseCodes))
	for _, c := range multifamilyUseCodes {
		codes[c] = struct{}{}
	}
	return &Engine{logger: logger, mfCodes: codes}
}

// Validate runs every check category over the built model and returns the
// report. It never returns an error for bad data; findings land in the
// report and the caller decides whether a failure gates loading.
func (e *Engine) Validate(ctx context.Context, model *models.DimensionalModel, dates *DateRange) *Report {
	ctx, span := tracing.StartSpan(ctx, "validation.Engine.Validate")
	defer span.End()

	log := e.logger.WithContext(ctx)
	log.Info("Running data quality validation")

	report := &Report{}

	e.checkRequiredFields(report, model)
	e.checkUniqueness(report, model)
	e.checkReferentialIntegrity(report, model)
	e.checkConsistency(report, model, dates)
	e.checkBusinessLogic(report, model)
	e.recordStatistics(report, model)

	log.WithFields(map[string]any{
		"total":    report.Total(),
		"passed":   report.Passed(),
		"warnings": report.Warnings(),
		"failed":   report.Failed(),
	}).Info("Data quality validation complete")

	for _, check := range report.FailedChecks() {
		log.WithFields(map[string]any{
			"check":      check.Name,
			"percentage": check.Percentage,
		}).Warn("Data quality check failed")
	}

	return report
}

func (e *Engine) checkRequiredFields(report *Report, model *models.DimensionalModel) {
	if len(model.DimProperty) > 0 {
		withTaxID := 0
		withValidFrom := 0
		for _, p := range model.DimProperty {
			if p.TaxAssessorID != "" {
				withTaxID++
			}
			if p.ValidFrom != "" {
				withValidFrom++
			}
		}
		report.addCheck(CategoryRequiredField, "dim_property.tax_assessor_id NOT NULL",
			withTaxID, len(model.DimProperty), DefaultThreshold, "")
		report.addCheck(CategoryRequiredField, "dim_property.valid_from NOT NULL",
			withValidFrom, len(model.DimProperty), DefaultThreshold, "")
	}

	if len(model.DimEntity) > 0 {
		withID := 0
		withName := 0
		for _, ent := range model.DimEntity {
			if ent.CanonicalEntityID != "" {
				withID++
			}
			if ent.CanonicalEntityName != nil && *ent.CanonicalEntityName != "" {
				withName++
			}
		}
		report.addCheck(CategoryRequiredField, "dim_entity.canonical_entity_id NOT NULL",
			withID, len(model.DimEntity), DefaultThreshold, "")
		report.addCheck(CategoryRequiredField, "dim_entity.canonical_entity_name NOT NULL",
			withName, len(model.DimEntity), DefaultThreshold, "")
	}

	if len(model.FactTransaction) > 0 {
		withRecorderID := 0
		withDate := 0
		for _, t := range model.FactTransaction {
			if t.RecorderID != "" {
				withRecorderID++
			}
			if t.TransactionDate != nil && *t.TransactionDate != "" {
				withDate++
			}
		}
		report.addCheck(CategoryRequiredField, "fact_transaction.recorder_id NOT NULL",
			withRecorderID, len(model.FactTransaction), DefaultThreshold, "")
		report.addCheck(CategoryRequiredField, "fact_transaction.transaction_date NOT NULL",
			withDate, len(model.FactTransaction), DefaultThreshold, "")
	}

	if len(model.BridgeTransactionParty) > 0 {
		withName := 0
		for _, b := range model.BridgeTransactionParty {
			if b.PartyNameRaw != nil && *b.PartyNameRaw != "" {
				withName++
			}
		}
		report.addCheck(CategoryRequiredField, "bridge_transaction_party.party_name_raw NOT NULL",
			withName, len(model.BridgeTransactionParty), DefaultThreshold, "")
	}
}

func (e *Engine) checkUniqueness(report *Report, model *models.DimensionalModel) {
	if len(model.DimProperty) > 0 {
		keys := make(map[int64]struct{}, len(model.DimProperty))
		naturalKeys := make(map[string]struct{}, len(model.DimProperty))
		for _, p := range model.DimProperty {
			keys[p.PropertyKey] = struct{}{}
			naturalKeys[p.TaxAssessorID+"|"+p.ValidFrom] = struct{}{}
		}
		report.addCheck(CategoryUniqueness, "dim_property.property_key is unique",
			len(keys), len(model.DimProperty), DefaultThreshold, "")
		report.addCheck(CategoryUniqueness, "dim_property (tax_assessor_id, valid_from) is unique",
			len(naturalKeys), len(model.DimProperty), DefaultThreshold,
			"SCD Type 2 natural key must be unique")
	}

	if len(model.DimEntity) > 0 {
		keys := make(map[int64]struct{}, len(model.DimEntity))
		for _, ent := range model.DimEntity {
			keys[ent.EntityKey] = struct{}{}
		}
		report.addCheck(CategoryUniqueness, "dim_entity.entity_key is unique",
			len(keys), len(model.DimEntity), DefaultThreshold, "")
	}

	if len(model.FactTransaction) > 0 {
		keys := make(map[int64]struct{}, len(model.FactTransaction))
		recorderIDs := make(map[string]struct{}, len(model.FactTransaction))
		for _, t := range model.FactTransaction {
			keys[t.TransactionKey] = struct{}{}
			recorderIDs[t.RecorderID] = struct{}{}
		}
		report.addCheck(CategoryUniqueness, "fact_transaction.transaction_key is unique",
			len(keys), len(model.FactTransaction), DefaultThreshold, "")
		report.addCheck(CategoryUniqueness, "fact_transaction.recorder_id is unique",
			len(recorderIDs), len(model.FactTransaction), DefaultThreshold, "")
	}
}

func (e *Engine) checkReferentialIntegrity(report *Report, model *models.DimensionalModel) {
	propertyKeys := make(map[int64]struct{}, len(model.DimProperty))
	for _, p := range model.DimProperty {
		propertyKeys[p.PropertyKey] = struct{}{}
	}
	entityKeys := make(map[int64]struct{}, len(model.DimEntity))
	for _, ent := range model.DimEntity {
		entityKeys[ent.EntityKey] = struct{}{}
	}
	transactionKeys := make(map[int64]struct{}, len(model.FactTransaction))
	for _, t := range model.FactTransaction {
		transactionKeys[t.TransactionKey] = struct{}{}
	}

	if len(model.FactTransaction) > 0 {
		withFK, valid := 0, 0
		for _, t := range model.FactTransaction {
			if t.PropertyKey == nil {
				continue
			}
			withFK++
			if _, ok := propertyKeys[*t.PropertyKey]; ok {
				valid++
			}
		}
		report.addCheck(CategoryReferentialIntegrity, "fact_transaction.property_key -> dim_property",
			valid, withFK, DefaultThreshold, "All non-null FKs must exist in parent table")
	}

	if len(model.BridgeTransactionParty) > 0 {
		valid := 0
		for _, b := range model.BridgeTransactionParty {
			if _, ok := transactionKeys[b.TransactionKey]; ok {
				valid++
			}
		}
		report.addCheck(CategoryReferentialIntegrity, "bridge_transaction_party.transaction_key -> fact_transaction",
			valid, len(model.BridgeTransactionParty), DefaultThreshold, "")
	}

	if len(model.BridgePropertyOwner) > 0 {
		validProperty, validEntity := 0, 0
		for _, b := range model.BridgePropertyOwner {
			if _, ok := propertyKeys[b.PropertyKey]; ok {
				validProperty++
			}
			if _, ok := entityKeys[b.EntityKey]; ok {
				validEntity++
			}
		}
		report.addCheck(CategoryReferentialIntegrity, "bridge_property_owner.property_key -> dim_property",
			validProperty, len(model.BridgePropertyOwner), DefaultThreshold, "")
		report.addCheck(CategoryReferentialIntegrity, "bridge_property_owner.entity_key -> dim_entity",
			validEntity, len(model.BridgePropertyOwner), DefaultThreshold, "")
	}
}

func (e *Engine) checkConsistency(report *Report, model *models.DimensionalModel, dates *DateRange) {
	if len(model.DimProperty) > 0 {
		currentRows := 0
		currentNaturalKeys := make(map[string]struct{})
		for _, p := range model.DimProperty {
			if p.IsCurrent {
				currentRows++
				currentNaturalKeys[p.TaxAssessorID] = struct{}{}
			}
		}
		total := currentRows
		if total == 0 {
			total = 1
		}
		message := "No duplicates"
		if currentRows != len(currentNaturalKeys) {
			message = fmt.Sprintf("%d duplicate current rows", currentRows-len(currentNaturalKeys))
		}
		report.addCheck(CategoryConsistency, "dim_property: 1 current row per tax_assessor_id",
			len(currentNaturalKeys), total, DefaultThreshold, message)
	}

	if len(model.FactTransaction) > 0 && len(model.BridgeTransactionParty) > 0 {
		bridgeGrantors, bridgeGrantees := 0, 0
		for _, b := range model.BridgeTransactionParty {
			switch b.PartyRole {
			case models.PartyRoleGrantor:
				bridgeGrantors++
			case models.PartyRoleGrantee:
				bridgeGrantees++
			}
		}
		factGrantors, factGrantees := 0, 0
		for _, t := range model.FactTransaction {
			factGrantors += t.GrantorCount
			factGrantees += t.GranteeCount
		}

		e.addCountMatchCheck(report, "bridge grantor count = fact.grantor_count sum",
			bridgeGrantors, factGrantors)
		e.addCountMatchCheck(report, "bridge grantee count = fact.grantee_count sum",
			bridgeGrantees, factGrantees)
	}

	if len(model.FactTransaction) > 0 && dates != nil {
		var txnDates []string
		for _, t := range model.FactTransaction {
			if t.TransactionDate != nil && *t.TransactionDate != "" {
				txnDates = append(txnDates, *t.TransactionDate)
			}
		}
		if len(txnDates) > 0 {
			minDate, maxDate := txnDates[0], txnDates[0]
			inRange := 0
			for _, d := range txnDates {
				if d < minDate {
					minDate = d
				}
				if d > maxDate {
					maxDate = d
				}
				if dates.Start <= d && d <= dates.End {
					inRange++
				}
			}
			report.addCheck(CategoryConsistency, "Transactions within date range",
				inRange, len(txnDates), DefaultThreshold,
				fmt.Sprintf("Expected: %s to %s, Actual: %s to %s", dates.Start, dates.End, minDate, maxDate))
		}
	}
}

func (e *Engine) addCountMatchCheck(report *Report, name string, bridgeCount, factCount int) {
	passed := 0
	total := factCount
	if bridgeCount == factCount {
		passed = factCount
	}
	if total == 0 {
		total = 1
		if bridgeCount == 0 {
			passed = 1
		}
	}
	report.addCheck(CategoryConsistency, name, passed, total, DefaultThreshold,
		fmt.Sprintf("Bridge: %d, Fact: %d", bridgeCount, factCount))
}

func (e *Engine) checkBusinessLogic(report *Report, model *models.DimensionalModel) {
	if len(model.FactTransaction) > 0 {
		sales, salesWithAmount := 0, 0
		withParties := 0
		for _, t := range model.FactTransaction {
			if t.IsSale {
				sales++
				if t.DocumentAmount != nil && *t.DocumentAmount > 0 {
					salesWithAmount++
				}
			}
			if t.GrantorCount > 0 || t.GranteeCount > 0 {
				withParties++
			}
		}
		if sales > 0 {
			report.addCheck(CategoryBusinessLogic, "Sales have document_amount > 0",
				salesWithAmount, sales, DefaultThreshold, "")
		}
		report.addCheck(CategoryBusinessLogic, "Transactions have at least one party",
			withParties, len(model.FactTransaction), 95, "")
	}

	if len(model.DimProperty) > 0 {
		withValidCode := 0
		for _, p := range model.DimProperty {
			if p.UseCode == nil {
				continue
			}
			if _, ok := e.mfCodes[*p.UseCode]; ok {
				withValidCode++
			}
		}
		report.addCheck(CategoryBusinessLogic, "Properties have valid MF use codes",
			withValidCode, len(model.DimProperty), 95, "")
	}
}

func (e *Engine) recordStatistics(report *Report, model *models.DimensionalModel) {
	if len(model.DimProperty) > 0 {
		withAddress := 0
		for _, p := range model.DimProperty {
			if p.Address != nil && *p.Address != "" {
				withAddress++
			}
		}
		report.addStat(StatCompleteness, "dim_property.property_address",
			ratioValue(withAddress, len(model.DimProperty)))
	}

	if len(model.FactTransaction) > 0 {
		multiGrantor, multiGrantee := 0, 0
		categories := make(map[models.TransactionCategory]int)
		categoryOrder := make([]models.TransactionCategory, 0, 3)
		for _, t := range model.FactTransaction {
			if t.GrantorCount >= 2 {
				multiGrantor++
			}
			if t.GranteeCount >= 2 {
				multiGrantee++
			}
			if _, seen := categories[t.TransactionCategory]; !seen {
				categoryOrder = append(categoryOrder, t.TransactionCategory)
			}
			categories[t.TransactionCategory]++
		}

		report.addStat(StatCardinality, "Transactions with 2+ grantors",
			ratioValue(multiGrantor, len(model.FactTransaction)))
		report.addStat(StatCardinality, "Transactions with 2+ grantees",
			ratioValue(multiGrantee, len(model.FactTransaction)))

		for _, cat := range categoryOrder {
			count := categories[cat]
			report.addStat(StatTransactionType, fmt.Sprintf("%s transactions", cat),
				fmt.Sprintf("%d (%.1f%%)", count, float64(count)/float64(len(model.FactTransaction))*100))
		}
	}
}
