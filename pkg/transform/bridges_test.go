package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nedl-data/nedl-etl/pkg/models"
)

func TestTransactionPartyBridge_GrantorsThenGrantees(t *testing.T) {
	builder := NewBridgeBuilder(testLogger())

	transactions := []models.FlatTransaction{{RecorderID: "R1"}}
	grantors := []models.FlatGrantor{
		{RecorderID: "R1", Name: strPtr("SELLER A")},
		{RecorderID: "R1", Name: strPtr("SELLER B")},
	}
	grantees := []models.FlatGrantee{
		{RecorderID: "R1", Name: strPtr("BUYER A"), SourcePK: int64Ptr(7)},
	}

	bridge, err := builder.BuildTransactionParty(
		context.Background(), transactions, grantors, grantees, map[string]int64{"R1": 1})
	require.NoError(t, err)
	require.Len(t, bridge, 3)

	assert.Equal(t, models.PartyRoleGrantor, bridge[0].PartyRole)
	assert.Equal(t, 1, bridge[0].PartySequence)
	assert.Equal(t, models.PartyRoleGrantor, bridge[1].PartyRole)
	assert.Equal(t, 2, bridge[1].PartySequence)

	grantee := bridge[2]
	assert.Equal(t, models.PartyRoleGrantee, grantee.PartyRole)
	assert.Equal(t, 1, grantee.PartySequence, "sequence restarts per role")
	assert.Equal(t, "BUYER A", *grantee.PartyNameRaw)
	require.NotNil(t, grantee.SourceRecordPK)
	assert.Equal(t, int64(7), *grantee.SourceRecordPK)

	for _, row := range bridge {
		assert.Equal(t, int64(1), row.TransactionKey)
		assert.Equal(t, "R1", row.RecorderID, "rows keep the transaction's natural id")
		assert.Nil(t, row.EntityKey, "party entity resolution is deferred")
		assert.False(t, row.IsResolved)
	}
}

func TestTransactionPartyBridge_SkipsUnknownTransaction(t *testing.T) {
	builder := NewBridgeBuilder(testLogger())

	transactions := []models.FlatTransaction{{RecorderID: "R1"}, {RecorderID: "R-unknown"}}
	grantors := []models.FlatGrantor{
		{RecorderID: "R1", Name: strPtr("OK")},
		{RecorderID: "R-unknown", Name: strPtr("DROPPED")},
	}

	bridge, err := builder.BuildTransactionParty(
		context.Background(), transactions, grantors, nil, map[string]int64{"R1": 1})
	require.NoError(t, err)
	require.Len(t, bridge, 1)
	assert.Equal(t, "OK", *bridge[0].PartyNameRaw)
}

func TestPropertyOwnerBridge_ResolvesBothSides(t *testing.T) {
	builder := NewBridgeBuilder(testLogger())

	owners := []models.RawOwner{
		{OwnerID: "O1", TaxAssessorID: strPtr("P1"), LastSeenDate: strPtr("2025-04-01")},
		{OwnerID: "O2", TaxAssessorID: strPtr("P1")},
	}
	propertyKeys := map[string]int64{"P1": 11}
	entityKeys := map[string]int64{"O1": 21, "O2": 22}

	bridge, err := builder.BuildPropertyOwner(context.Background(), owners, propertyKeys, entityKeys)
	require.NoError(t, err)
	require.Len(t, bridge, 2)

	assert.Equal(t, int64(11), bridge[0].PropertyKey)
	assert.Equal(t, "P1", bridge[0].TaxAssessorID)
	assert.Equal(t, int64(21), bridge[0].EntityKey)
	assert.Equal(t, "O1", bridge[0].CanonicalEntityID)
	assert.Equal(t, 1, bridge[0].OwnershipSequence)
	require.NotNil(t, bridge[0].ValidTo)
	assert.Equal(t, "2025-04-01", *bridge[0].ValidTo)
	assert.True(t, bridge[0].IsCurrent)

	assert.Equal(t, int64(22), bridge[1].EntityKey)
	assert.Equal(t, 2, bridge[1].OwnershipSequence)
}

func TestPropertyOwnerBridge_SkipsUnresolvedOwner(t *testing.T) {
	builder := NewBridgeBuilder(testLogger())

	owners := []models.RawOwner{
		{OwnerID: "O1", TaxAssessorID: strPtr("P1")},
		{OwnerID: "O2", TaxAssessorID: strPtr("P1")},
	}
	propertyKeys := map[string]int64{"P1": 11}
	entityKeys := map[string]int64{"O1": 21}

	bridge, err := builder.BuildPropertyOwner(context.Background(), owners, propertyKeys, entityKeys)
	require.NoError(t, err)
	require.Len(t, bridge, 1, "unresolved owner is skipped, not emitted")
	assert.Equal(t, int64(21), bridge[0].EntityKey)
	assert.Equal(t, 1, bridge[0].OwnershipSequence)
}

func TestPropertyOwnerBridge_SequenceReflectsInputPosition(t *testing.T) {
	builder := NewBridgeBuilder(testLogger())

	owners := []models.RawOwner{
		{OwnerID: "O-unresolved", TaxAssessorID: strPtr("P1")},
		{OwnerID: "O2", TaxAssessorID: strPtr("P1")},
	}
	propertyKeys := map[string]int64{"P1": 11}
	entityKeys := map[string]int64{"O2": 22}

	bridge, err := builder.BuildPropertyOwner(context.Background(), owners, propertyKeys, entityKeys)
	require.NoError(t, err)
	require.Len(t, bridge, 1)
	assert.Equal(t, 2, bridge[0].OwnershipSequence, "sequence keeps the input position, gaps included")
}

func TestPropertyOwnerBridge_SkipsUnresolvedProperty(t *testing.T) {
	builder := NewBridgeBuilder(testLogger())

	owners := []models.RawOwner{
		{OwnerID: "O1", TaxAssessorID: strPtr("P-unknown")},
	}

	bridge, err := builder.BuildPropertyOwner(
		context.Background(), owners, map[string]int64{}, map[string]int64{"O1": 21})
	require.NoError(t, err)
	assert.Empty(t, bridge)
}

func TestKeyGen_StartsAtOneAndAdvances(t *testing.T) {
	g := NewKeyGen()

	first, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, int64(2), g.Issued())
}
