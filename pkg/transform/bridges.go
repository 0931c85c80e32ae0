package transform

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

const (
	grantorSourceTable = "recorder_grantor_v2"
	granteeSourceTable = "recorder_grantee_v2"
)

// BridgeBuilder materializes the two many-to-many bridge tables.
type BridgeBuilder struct {
	logger ectologger.Logger
}

func NewBridgeBuilder(logger ectologger.Logger) *BridgeBuilder {
	return &BridgeBuilder{logger: logger}
}

// BuildTransactionParty emits one bridge row per flattened party, grantors
// before grantees per transaction, with a 1-based sequence per role. Party
// entity resolution is deferred: entity_key stays nil with is_resolved
// false. Parties whose transaction is absent from the fact lookup are
// skipped, never an error.
func (b *BridgeBuilder) BuildTransactionParty(
	ctx context.Context,
	transactions []models.FlatTransaction,
	grantors []models.FlatGrantor,
	grantees []models.FlatGrantee,
	transactionKeys map[string]int64,
) ([]models.BridgeTransactionParty, error) {
	ctx, span := tracing.StartSpan(ctx, "transform.BridgeBuilder.BuildTransactionParty")
	defer span.End()

	log := b.logger.WithContext(ctx)

	grantorsByTxn := make(map[string][]models.FlatGrantor)
	for _, g := range grantors {
		grantorsByTxn[g.RecorderID] = append(grantorsByTxn[g.RecorderID], g)
	}
	granteesByTxn := make(map[string][]models.FlatGrantee)
	for _, g := range grantees {
		granteesByTxn[g.RecorderID] = append(granteesByTxn[g.RecorderID], g)
	}

	keys := NewKeyGen()
	var bridge []models.BridgeTransactionParty
	grantorRows, granteeRows := 0, 0

	for _, txn := range transactions {
		transactionKey, ok := transactionKeys[txn.RecorderID]
		if !ok {
			continue
		}

		for seq, g := range grantorsByTxn[txn.RecorderID] {
			key, err := keys.Next()
			if err != nil {
				return nil, err
			}
			bridge = append(bridge, models.BridgeTransactionParty{
				BridgeKey:       key,
				TransactionKey:  transactionKey,
				RecorderID:      txn.RecorderID,
				PartyRole:       models.PartyRoleGrantor,
				PartySequence:   seq + 1,
				PartyNameRaw:    g.Name,
				PartyAddressRaw: g.Address,
				PartyEntityCode: g.EntityCode,
				IsResolved:      false,
				SourceTable:     grantorSourceTable,
				SourceRecordPK:  g.SourcePK,
			})
			grantorRows++
		}

		for seq, g := range granteesByTxn[txn.RecorderID] {
			key, err := keys.Next()
			if err != nil {
				return nil, err
			}
			bridge = append(bridge, models.BridgeTransactionParty{
				BridgeKey:       key,
				TransactionKey:  transactionKey,
				RecorderID:      txn.RecorderID,
				PartyRole:       models.PartyRoleGrantee,
				PartySequence:   seq + 1,
				PartyNameRaw:    g.Name,
				PartyAddressRaw: g.Address,
				PartyEntityCode: g.EntityCode,
				IsResolved:      false,
				SourceTable:     granteeSourceTable,
				SourceRecordPK:  g.SourcePK,
			})
			granteeRows++
		}
	}

	log.WithFields(map[string]any{
		"rows":     len(bridge),
		"grantors": grantorRows,
		"grantees": granteeRows,
	}).Info("Built bridge_transaction_party")

	return bridge, nil
}

// BuildPropertyOwner groups owners by property and emits one row per owner
// that resolves in the entity lookup, for properties that resolve in the
// property lookup. The ownership sequence reflects the owner's position in
// the property's input list, so skipped owners leave gaps.
func (b *BridgeBuilder) BuildPropertyOwner(
	ctx context.Context,
	owners []models.RawOwner,
	propertyKeys map[string]int64,
	entityKeys map[string]int64,
) ([]models.BridgePropertyOwner, error) {
	ctx, span := tracing.StartSpan(ctx, "transform.BridgeBuilder.BuildPropertyOwner")
	defer span.End()

	log := b.logger.WithContext(ctx)

	propertyOrder := make([]string, 0)
	ownersByProperty := make(map[string][]models.RawOwner)
	for _, o := range owners {
		if o.TaxAssessorID == nil || *o.TaxAssessorID == "" || o.OwnerID == "" {
			continue
		}
		taxID := *o.TaxAssessorID
		if _, seen := ownersByProperty[taxID]; !seen {
			propertyOrder = append(propertyOrder, taxID)
		}
		ownersByProperty[taxID] = append(ownersByProperty[taxID], o)
	}

	keys := NewKeyGen()
	var bridge []models.BridgePropertyOwner

	for _, taxID := range propertyOrder {
		propertyKey, ok := propertyKeys[taxID]
		if !ok {
			continue
		}

		for seq, owner := range ownersByProperty[taxID] {
			entityKey, ok := entityKeys[owner.OwnerID]
			if !ok {
				continue
			}

			key, err := keys.Next()
			if err != nil {
				return nil, err
			}
			bridge = append(bridge, models.BridgePropertyOwner{
				BridgeKey:         key,
				PropertyKey:       propertyKey,
				TaxAssessorID:     taxID,
				EntityKey:         entityKey,
				CanonicalEntityID: owner.OwnerID,
				OwnershipSequence: seq + 1,
				ValidFrom:         models.DefaultValidFrom,
				ValidTo:           owner.LastSeenDate,
				IsCurrent:         true,
				IsDerived:         false,
			})
		}
	}

	log.WithField("rows", len(bridge)).Info("Built bridge_property_owner")

	return bridge, nil
}
