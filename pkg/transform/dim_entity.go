package transform

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/nedl-data/nedl-etl/pkg/models"
	"github.com/nedl-data/nedl-etl/pkg/normalizers"
	"github.com/nedl-data/nedl-etl/pkg/tracing"
)

// ownerIDSeparator splits the composite canonical owner identifier
// ("NAME::TYPE::STATE::ADDRESS"); the first part is the bare owner name.
const ownerIDSeparator = "::"

const ownerSourceTable = "usa_owner_unmask_v2"

// EntityDimension is the output of the entity dimension builder: dimension
// rows, their identifier rows, and a lookup from canonical owner id to
// surrogate key.
type EntityDimension struct {
	Rows        []models.DimEntity
	Identifiers []models.DimEntityIdentifier
	KeyLookup   map[string]int64
}

// EntityDimensionBuilder deduplicates raw owner records into dim_entity and
// dim_entity_identifier.
type EntityDimensionBuilder struct {
	logger ectologger.Logger
}

func NewEntityDimensionBuilder(logger ectologger.Logger) *EntityDimensionBuilder {
	return &EntityDimensionBuilder{logger: logger}
}

// Build groups owners by canonical id, takes the first record of each group
// as representative, scores confidence, and emits one current dimension row
// per distinct id plus its identifiers. Records with an empty owner id are
// skipped (surfaced by DQ statistics, not an error).
func (b *EntityDimensionBuilder) Build(ctx context.Context, owners []models.RawOwner) (*EntityDimension, error) {
	ctx, span := tracing.StartSpan(ctx, "transform.EntityDimensionBuilder.Build")
	defer span.End()

	log := b.logger.WithContext(ctx)
	log.WithField("owners", len(owners)).Info("Building dim_entity")

	order := make([]string, 0, len(owners))
	representative := make(map[string]models.RawOwner, len(owners))
	for _, o := range owners {
		if o.OwnerID == "" {
			continue
		}
		if _, seen := representative[o.OwnerID]; !seen {
			order = append(order, o.OwnerID)
			representative[o.OwnerID] = o
		}
	}

	entityKeys := NewKeyGen()
	identifierKeys := NewKeyGen()
	dim := &EntityDimension{
		Rows:      make([]models.DimEntity, 0, len(order)),
		KeyLookup: make(map[string]int64, len(order)),
	}

	// Identifier rows are unique by (type, value); distinct entities whose
	// names normalize to the same value keep only the first-seen row, so a
	// single load never carries the same conflict key twice.
	seenIdentifiers := make(map[string]struct{}, len(order))
	addIdentifier := func(row models.DimEntity, identifierType, value string, isPrimary bool) error {
		if _, dup := seenIdentifiers[identifierType+"|"+value]; dup {
			return nil
		}
		seenIdentifiers[identifierType+"|"+value] = struct{}{}

		idKey, err := identifierKeys.Next()
		if err != nil {
			return err
		}
		dim.Identifiers = append(dim.Identifiers, models.DimEntityIdentifier{
			IdentifierKey:   idKey,
			EntityKey:       row.EntityKey,
			IdentifierType:  identifierType,
			IdentifierValue: value,
			SourceSystem:    models.SourceSystemCherre,
			SourceTable:     ownerSourceTable,
			IsPrimary:       isPrimary,
			ValidFrom:       row.ValidFrom,
			ValidTo:         row.ValidTo,
			IsCurrent:       true,
		})
		return nil
	}

	for _, ownerID := range order {
		base := representative[ownerID]

		entityKey, err := entityKeys.Next()
		if err != nil {
			return nil, err
		}

		row := models.DimEntity{
			EntityKey:           entityKey,
			CanonicalEntityID:   ownerID,
			OwnerSourcePK:       base.SourcePK,
			CanonicalEntityName: base.OwnerName,
			EntityType:          base.OwnerType,
			State:               base.OwnerState,
			ConfidenceScore:     confidenceScore(base),
			OccurrencesCount:    base.OccurrencesCount,
			IsResolved:          true,
			ResolutionMethod:    models.SourceSystemCherre,
			ValidFrom:           models.DefaultValidFrom,
			ValidTo:             base.LastSeenDate,
			IsCurrent:           true,
			SourceSystem:        models.SourceSystemCherre,
		}
		dim.Rows = append(dim.Rows, row)
		dim.KeyLookup[ownerID] = entityKey

		// Primary identifier: the full canonical id.
		if err := addIdentifier(row, models.IdentifierTypeOwnerID, ownerID, true); err != nil {
			return nil, err
		}

		// Secondary identifier: the name component of a composite id,
		// normalized so spelling variants of the same owner collide.
		if name := normalizers.NormalizeOwnerName(strings.Split(ownerID, ownerIDSeparator)[0]); name != "" {
			if err := addIdentifier(row, models.IdentifierTypeOwnerName, name, false); err != nil {
				return nil, err
			}
		}
	}

	log.WithFields(map[string]any{
		"entities":    len(dim.Rows),
		"identifiers": len(dim.Identifiers),
	}).Info("Built dim_entity")

	return dim, nil
}

// confidenceScore combines the vendor confidence flag with a tiered bonus
// from how often the owner was observed.
func confidenceScore(owner models.RawOwner) int {
	score := 0
	if owner.HasConfidence != nil && *owner.HasConfidence {
		score += 50
	}

	occ := 0
	if owner.OccurrencesCount != nil {
		occ = *owner.OccurrencesCount
	}
	switch {
	case occ >= 10:
		score += 50
	case occ >= 5:
		score += 30
	case occ >= 2:
		score += 20
	default:
		score += 10
	}

	return score
}
