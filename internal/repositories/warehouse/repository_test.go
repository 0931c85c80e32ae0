package warehouse

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nedl-data/nedl-etl/pkg/database"
	"github.com/nedl-data/nedl-etl/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func testRepository(t *testing.T, environment string, batchSize int) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), testLogger())
	return New(db, testLogger(), environment, batchSize), mock
}

func strPtr(s string) *string { return &s }

func TestResolveTable(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		input       string
		expected    string
	}{
		{"prod keeps raw schema", "prod", "raw.cherre_transactions", "raw.cherre_transactions"},
		{"prod keeps analytics schema", "prod", "analytics.dim_property", "analytics.dim_property"},
		{"dev folds schema into table name", "dev", "raw.cherre_transactions", "dev.raw_cherre_transactions"},
		{"dev folds analytics tables too", "dev", "analytics.dim_property", "dev.analytics_dim_property"},
		{"unqualified name defaults to public", "prod", "audit_log", "public.audit_log"},
		{"unqualified name in dev", "dev", "audit_log", "dev.public_audit_log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResolveTable(tt.environment, tt.input))
		})
	}
}

func TestInsertRawTransactions_BatchesInserts(t *testing.T) {
	repo, mock := testRepository(t, "dev", 2)

	rows := []models.FlatTransaction{
		{RecorderID: "R1", GrantorCount: 1},
		{RecorderID: "R2"},
		{RecorderID: "R3"},
	}

	mock.ExpectExec(`INSERT INTO dev\.raw_cherre_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO dev\.raw_cherre_transactions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := repo.InsertRawTransactions(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRawTransactions_EmptyInputSkipsDatabase(t *testing.T) {
	repo, mock := testRepository(t, "prod", 100)

	count, err := repo.InsertRawTransactions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadModel_UpsertsEveryTableByNaturalKey(t *testing.T) {
	repo, mock := testRepository(t, "prod", 100)

	model := &models.DimensionalModel{
		DimProperty: []models.DimProperty{
			{PropertyKey: 1, TaxAssessorID: "P1", ValidFrom: "2025-01-01", IsCurrent: true},
		},
		DimEntity: []models.DimEntity{
			{EntityKey: 1, CanonicalEntityID: "O1", ValidFrom: "2025-01-01"},
		},
		DimEntityIdentifier: []models.DimEntityIdentifier{
			{IdentifierKey: 1, EntityKey: 1, IdentifierType: "cherre_owner_id", IdentifierValue: "O1", ValidFrom: "2025-01-01"},
		},
		FactTransaction: []models.FactTransaction{
			{TransactionKey: 1, RecorderID: "R1", TransactionCategory: models.TransactionCategorySale},
		},
		BridgeTransactionParty: []models.BridgeTransactionParty{
			{BridgeKey: 1, TransactionKey: 1, RecorderID: "R1", PartyRole: models.PartyRoleGrantor, PartySequence: 1, PartyNameRaw: strPtr("SELLER")},
		},
		BridgePropertyOwner: []models.BridgePropertyOwner{
			{BridgeKey: 1, PropertyKey: 1, TaxAssessorID: "P1", EntityKey: 1, CanonicalEntityID: "O1", OwnershipSequence: 1, ValidFrom: "2025-01-01"},
		},
	}

	mock.ExpectExec(`INSERT INTO analytics\.dim_property .*ON CONFLICT \(tax_assessor_id, valid_from\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO analytics\.dim_entity .*ON CONFLICT \(canonical_entity_id, valid_from\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO analytics\.dim_entity_identifier .*ON CONFLICT \(identifier_type, identifier_value\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO analytics\.fact_transaction .*ON CONFLICT \(recorder_id\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO analytics\.bridge_transaction_party .*ON CONFLICT \(recorder_id, party_role, party_sequence\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO analytics\.bridge_property_owner .*ON CONFLICT \(tax_assessor_id, canonical_entity_id, valid_from\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	counts, err := repo.LoadModel(context.Background(), model)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"dim_property":             1,
		"dim_entity":               1,
		"dim_entity_identifier":    1,
		"fact_transaction":         1,
		"bridge_transaction_party": 1,
		"bridge_property_owner":    1,
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadModel_StopsOnFirstFailure(t *testing.T) {
	repo, mock := testRepository(t, "prod", 100)

	model := &models.DimensionalModel{
		DimProperty: []models.DimProperty{
			{PropertyKey: 1, TaxAssessorID: "P1", ValidFrom: "2025-01-01"},
		},
		DimEntity: []models.DimEntity{
			{EntityKey: 1, CanonicalEntityID: "O1", ValidFrom: "2025-01-01"},
		},
	}

	mock.ExpectExec(`INSERT INTO analytics\.dim_property`).
		WillReturnError(assert.AnError)

	counts, err := repo.LoadModel(context.Background(), model)
	require.Error(t, err)
	assert.NotContains(t, counts, "dim_entity")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func upsertSQL(s *database.Struct, table string, conflictColumns []string, row any) string {
	ib := s.InsertInto(table, row)
	ub := ib.OnConflict(conflictColumns...)
	ub.Set(excludedAssignments(ub, s, conflictColumns)...)
	query, _ := ib.Build()
	return query
}

func TestUpsertSQL_ExcludesConflictColumnsFromUpdate(t *testing.T) {
	query := upsertSQL(factTransactionStruct, "analytics.fact_transaction",
		[]string{"recorder_id"}, &models.FactTransaction{})

	assert.Contains(t, query, "ON CONFLICT (recorder_id) DO UPDATE SET")
	assert.NotContains(t, query, "recorder_id = EXCLUDED.recorder_id")
	assert.Contains(t, query, "transaction_key = EXCLUDED.transaction_key")
	assert.Contains(t, query, "transaction_category = EXCLUDED.transaction_category")
	assert.Contains(t, query, "grantor_count = EXCLUDED.grantor_count")
}

func TestUpsertSQL_CompositeKey(t *testing.T) {
	query := upsertSQL(dimPropertyStruct, "analytics.dim_property",
		[]string{"tax_assessor_id", "valid_from"}, &models.DimProperty{})

	assert.Contains(t, query, "ON CONFLICT (tax_assessor_id, valid_from) DO UPDATE SET")
	assert.NotContains(t, query, "tax_assessor_id = EXCLUDED.tax_assessor_id")
	assert.NotContains(t, query, "valid_from = EXCLUDED.valid_from")
	assert.Contains(t, query, "is_current = EXCLUDED.is_current")
	assert.Contains(t, query, "valid_to = EXCLUDED.valid_to")
}

func TestUpsertSQL_BridgesKeyOnNaturalIdentity(t *testing.T) {
	party := upsertSQL(bridgePartyStruct, "analytics.bridge_transaction_party",
		[]string{"recorder_id", "party_role", "party_sequence"}, &models.BridgeTransactionParty{})

	// The surrogate transaction key is refreshed, never part of the conflict
	// target, so reloads with re-assigned surrogates land on the same row.
	assert.Contains(t, party, "ON CONFLICT (recorder_id, party_role, party_sequence) DO UPDATE SET")
	assert.Contains(t, party, "transaction_key = EXCLUDED.transaction_key")
	assert.NotContains(t, party, "recorder_id = EXCLUDED.recorder_id")

	owner := upsertSQL(bridgeOwnerStruct, "analytics.bridge_property_owner",
		[]string{"tax_assessor_id", "canonical_entity_id", "valid_from"}, &models.BridgePropertyOwner{})

	assert.Contains(t, owner, "ON CONFLICT (tax_assessor_id, canonical_entity_id, valid_from) DO UPDATE SET")
	assert.Contains(t, owner, "property_key = EXCLUDED.property_key")
	assert.Contains(t, owner, "entity_key = EXCLUDED.entity_key")
	assert.NotContains(t, owner, "canonical_entity_id = EXCLUDED.canonical_entity_id")
}
