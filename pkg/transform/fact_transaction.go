package transform

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

// FactTable is the output of the fact builder: one row per transaction plus
// a lookup from recorder_id to surrogate key for the bridge builders.
type FactTable struct {
	Rows      []models.FactTransaction
	KeyLookup map[string]int64
}

// FactTransactionBuilder classifies transactions and resolves their property
// dimension foreign keys.
type FactTransactionBuilder struct {
	logger ectologger.Logger
}

func NewFactTransactionBuilder(logger ectologger.Logger) *FactTransactionBuilder {
	return &FactTransactionBuilder{logger: logger}
}

// Build assigns surrogate keys in input order. A transaction whose property
// is not in the lookup keeps a nil property_key; untracked properties are
// expected, not an error.
func (b *FactTransactionBuilder) Build(
	ctx context.Context,
	transactions []models.FlatTransaction,
	propertyKeys map[string]int64,
) (*FactTable, error) {
	ctx, span := tracing.StartSpan(ctx, "transform.FactTransactionBuilder.Build")
	defer span.End()

	log := b.logger.WithContext(ctx)
	log.WithField("transactions", len(transactions)).Info("Building fact_transaction")

	keys := NewKeyGen()
	fact := &FactTable{
		Rows:      make([]models.FactTransaction, 0, len(transactions)),
		KeyLookup: make(map[string]int64, len(transactions)),
	}

	salesCount := 0
	withProperty := 0

	for _, txn := range transactions {
		key, err := keys.Next()
		if err != nil {
			return nil, err
		}

		category, isSale := classifyTransaction(txn)
		if isSale {
			salesCount++
		}

		var propertyKey *int64
		if txn.TaxAssessorID != nil {
			if pk, ok := propertyKeys[*txn.TaxAssessorID]; ok {
				propertyKey = &pk
				withProperty++
			}
		}

		fact.Rows = append(fact.Rows, models.FactTransaction{
			TransactionKey:      key,
			RecorderID:          txn.RecorderID,
			PropertyKey:         propertyKey,
			TransactionDate:     txn.DocumentRecordedDate,
			InstrumentDate:      txn.DocumentInstrumentDate,
			DocumentNumber:      txn.DocumentNumber,
			DocumentTypeCode:    txn.DocumentTypeCode,
			DocumentAmount:      txn.DocumentAmount,
			TransferTaxAmount:   txn.TransferTaxAmount,
			ArmsLengthFlag:      txn.ArmsLengthCode,
			InterFamilyFlag:     txn.InterFamilyFlag,
			IsForeclosure:       txn.IsForeclosure,
			IsQuitClaim:         txn.IsQuitClaim,
			NewConstructionFlag: txn.NewConstructionFlag,
			ResaleFlag:          txn.ResaleFlag,
			TransactionCategory: category,
			IsSale:              isSale,
			PropertyAddress:     txn.PropertyAddress,
			PropertyCity:        txn.PropertyCity,
			PropertyState:       txn.PropertyState,
			PropertyZip:         txn.PropertyZip,
			TaxAssessorID:       txn.TaxAssessorID,
			GrantorCount:        txn.GrantorCount,
			GranteeCount:        txn.GranteeCount,
			HasMultipleParties:  txn.GrantorCount+txn.GranteeCount > 2,
			SourceSystem:        models.SourceSystemCherre,
			IngestDatetime:      txn.IngestDatetime,
		})
		fact.KeyLookup[txn.RecorderID] = key
	}

	log.WithFields(map[string]any{
		"rows":          len(fact.Rows),
		"sales":         salesCount,
		"with_property": withProperty,
	}).Info("Built fact_transaction")

	return fact, nil
}

// classifyTransaction buckets a transaction: SALE when an arms-length
// indicator is present and the amount is positive, MORTGAGE when the amount
// is exactly zero, OTHER everything else (including a missing amount).
func classifyTransaction(txn models.FlatTransaction) (models.TransactionCategory, bool) {
	armsLength := txn.ArmsLengthCode != nil && *txn.ArmsLengthCode != ""

	if armsLength && txn.DocumentAmount != nil && *txn.DocumentAmount > 0 {
		return models.TransactionCategorySale, true
	}
	if txn.DocumentAmount != nil && *txn.DocumentAmount == 0 {
		return models.TransactionCategoryMortgage, false
	}
	return models.TransactionCategoryOther, false
}
