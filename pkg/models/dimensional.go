package models

// SourceSystemCherre tags every row produced from Cherre data.
const SourceSystemCherre = "cherre"

// DefaultValidFrom is the validity start used when a dimension row has no
// history to anchor it.
const DefaultValidFrom = "2025-01-01"

// TransactionCategory classifies a recorded transaction.
type TransactionCategory string

const (
	TransactionCategorySale     TransactionCategory = "SALE"
	TransactionCategoryMortgage TransactionCategory = "MORTGAGE"
	TransactionCategoryOther    TransactionCategory = "OTHER"
)

// PartyRole discriminates transaction-party bridge rows.
type PartyRole string

const (
	PartyRoleGrantor PartyRole = "grantor"
	PartyRoleGrantee PartyRole = "grantee"
)

// Identifier types emitted by the entity dimension builder.
const (
	IdentifierTypeOwnerID   = "cherre_owner_id"
	IdentifierTypeOwnerName = "owner_name"
)

// DimProperty is an SCD Type 2 property dimension row. Dates are carried as
// ISO strings (YYYY-MM-DD) so validity windows compare lexicographically.
type DimProperty struct {
	PropertyKey   int64    `json:"property_key" db:"property_key"`
	TaxAssessorID string   `json:"tax_assessor_id" db:"tax_assessor_id"`
	ParcelNumber  *string  `json:"assessor_parcel_number,omitempty" db:"assessor_parcel_number"`
	Address       *string  `json:"property_address,omitempty" db:"property_address"`
	City          *string  `json:"property_city,omitempty" db:"property_city"`
	State         *string  `json:"property_state,omitempty" db:"property_state"`
	Zip           *string  `json:"property_zip,omitempty" db:"property_zip"`
	County        *string  `json:"property_county,omitempty" db:"property_county"`
	UseCode       *string  `json:"property_use_code,omitempty" db:"property_use_code"`
	LandUseCode   *string  `json:"land_use_code,omitempty" db:"land_use_code"`
	YearBuilt     *int     `json:"year_built,omitempty" db:"year_built"`
	BuildingSqFt  *float64 `json:"building_sqft,omitempty" db:"building_sqft"`
	LandSqFt      *float64 `json:"land_sqft,omitempty" db:"land_sqft"`
	UnitsCount    *int     `json:"units_count,omitempty" db:"units_count"`
	AssessedValue *float64 `json:"assessed_value,omitempty" db:"assessed_value"`
	MarketValue   *float64 `json:"market_value,omitempty" db:"market_value"`
	Latitude      *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64 `json:"longitude,omitempty" db:"longitude"`
	ValidFrom     string   `json:"valid_from" db:"valid_from"`
	ValidTo       *string  `json:"valid_to,omitempty" db:"valid_to"`
	IsCurrent     bool     `json:"is_current" db:"is_current"`
	SourceSystem  string   `json:"source_system" db:"source_system"`
}

// DimEntity is an owner/party dimension row keyed by the canonical owner
// identifier.
type DimEntity struct {
	EntityKey           int64   `json:"entity_key" db:"entity_key"`
	CanonicalEntityID   string  `json:"canonical_entity_id" db:"canonical_entity_id"`
	OwnerSourcePK       *int64  `json:"cherre_owner_pk,omitempty" db:"cherre_owner_pk"`
	CanonicalEntityName *string `json:"canonical_entity_name,omitempty" db:"canonical_entity_name"`
	EntityType          *string `json:"entity_type,omitempty" db:"entity_type"`
	State               *string `json:"state,omitempty" db:"state"`
	ConfidenceScore     int     `json:"confidence_score" db:"confidence_score"`
	OccurrencesCount    *int    `json:"occurrences_count,omitempty" db:"occurrences_count"`
	IsResolved          bool    `json:"is_resolved" db:"is_resolved"`
	ResolutionMethod    string  `json:"resolution_method" db:"resolution_method"`
	ValidFrom           string  `json:"valid_from" db:"valid_from"`
	ValidTo             *string `json:"valid_to,omitempty" db:"valid_to"`
	IsCurrent           bool    `json:"is_current" db:"is_current"`
	SourceSystem        string  `json:"source_system" db:"source_system"`
}

// DimEntityIdentifier links a dimension entity to one external identifier.
type DimEntityIdentifier struct {
	IdentifierKey   int64   `json:"identifier_key" db:"identifier_key"`
	EntityKey       int64   `json:"entity_key" db:"entity_key"`
	IdentifierType  string  `json:"identifier_type" db:"identifier_type"`
	IdentifierValue string  `json:"identifier_value" db:"identifier_value"`
	SourceSystem    string  `json:"source_system" db:"source_system"`
	SourceTable     string  `json:"source_table" db:"source_table"`
	IsPrimary       bool    `json:"is_primary" db:"is_primary"`
	ValidFrom       string  `json:"valid_from" db:"valid_from"`
	ValidTo         *string `json:"valid_to,omitempty" db:"valid_to"`
	IsCurrent       bool    `json:"is_current" db:"is_current"`
}

// FactTransaction is the transaction fact row. PropertyKey is nil when the
// transaction references a property outside the tracked set.
type FactTransaction struct {
	TransactionKey      int64               `json:"transaction_key" db:"transaction_key"`
	RecorderID          string              `json:"recorder_id" db:"recorder_id"`
	PropertyKey         *int64              `json:"property_key,omitempty" db:"property_key"`
	TransactionDate     *string             `json:"transaction_date,omitempty" db:"transaction_date"`
	InstrumentDate      *string             `json:"instrument_date,omitempty" db:"instrument_date"`
	DocumentNumber      *string             `json:"document_number,omitempty" db:"document_number"`
	DocumentTypeCode    *string             `json:"document_type_code,omitempty" db:"document_type_code"`
	DocumentAmount      *float64            `json:"document_amount,omitempty" db:"document_amount"`
	TransferTaxAmount   *float64            `json:"transfer_tax_amount,omitempty" db:"transfer_tax_amount"`
	ArmsLengthFlag      *string             `json:"arms_length_flag,omitempty" db:"arms_length_flag"`
	InterFamilyFlag     *string             `json:"inter_family_flag,omitempty" db:"inter_family_flag"`
	IsForeclosure       *bool               `json:"is_foreclosure,omitempty" db:"is_foreclosure"`
	IsQuitClaim         *bool               `json:"is_quit_claim,omitempty" db:"is_quit_claim"`
	NewConstructionFlag *string             `json:"new_construction_flag,omitempty" db:"new_construction_flag"`
	ResaleFlag          *string             `json:"resale_flag,omitempty" db:"resale_flag"`
	TransactionCategory TransactionCategory `json:"transaction_category" db:"transaction_category"`
	IsSale              bool                `json:"is_sale" db:"is_sale"`
	PropertyAddress     *string             `json:"property_address,omitempty" db:"property_address"`
	PropertyCity        *string             `json:"property_city,omitempty" db:"property_city"`
	PropertyState       *string             `json:"property_state,omitempty" db:"property_state"`
	PropertyZip         *string             `json:"property_zip,omitempty" db:"property_zip"`
	TaxAssessorID       *string             `json:"tax_assessor_id,omitempty" db:"tax_assessor_id"`
	GrantorCount        int                 `json:"grantor_count" db:"grantor_count"`
	GranteeCount        int                 `json:"grantee_count" db:"grantee_count"`
	HasMultipleParties  bool                `json:"has_multiple_parties" db:"has_multiple_parties"`
	SourceSystem        string              `json:"source_system" db:"source_system"`
	IngestDatetime      *string             `json:"cherre_ingest_datetime,omitempty" db:"cherre_ingest_datetime"`
}

// BridgeTransactionParty resolves the many-to-many between transactions and
// their parties. RecorderID carries the transaction's natural identity so
// reloads across runs land on the same row regardless of surrogate key
// assignment. EntityKey stays nil until party entity resolution is
// backfilled; IsResolved makes the unresolved state explicit.
type BridgeTransactionParty struct {
	BridgeKey        int64     `json:"bridge_key" db:"bridge_key"`
	TransactionKey   int64     `json:"transaction_key" db:"transaction_key"`
	RecorderID       string    `json:"recorder_id" db:"recorder_id"`
	EntityKey        *int64    `json:"entity_key,omitempty" db:"entity_key"`
	PartyRole        PartyRole `json:"party_role" db:"party_role"`
	PartySequence    int       `json:"party_sequence" db:"party_sequence"`
	PartyNameRaw     *string   `json:"party_name_raw,omitempty" db:"party_name_raw"`
	PartyAddressRaw  *string   `json:"party_address_raw,omitempty" db:"party_address_raw"`
	PartyEntityCode  *string   `json:"party_entity_code,omitempty" db:"party_entity_code"`
	IsResolved       bool      `json:"is_resolved" db:"is_resolved"`
	ResolutionMethod *string   `json:"resolution_method,omitempty" db:"resolution_method"`
	SourceTable      string    `json:"source_table" db:"source_table"`
	SourceRecordPK   *int64    `json:"source_record_pk,omitempty" db:"source_record_pk"`
}

// BridgePropertyOwner resolves the many-to-many between properties and
// owners. Rows exist only where both sides resolved to surrogate keys;
// TaxAssessorID and CanonicalEntityID keep the natural identity of each side
// so reloads across runs land on the same row.
type BridgePropertyOwner struct {
	BridgeKey           int64    `json:"bridge_key" db:"bridge_key"`
	PropertyKey         int64    `json:"property_key" db:"property_key"`
	TaxAssessorID       string   `json:"tax_assessor_id" db:"tax_assessor_id"`
	EntityKey           int64    `json:"entity_key" db:"entity_key"`
	CanonicalEntityID   string   `json:"canonical_entity_id" db:"canonical_entity_id"`
	OwnershipSequence   int      `json:"ownership_sequence" db:"ownership_sequence"`
	OwnershipPercentage *float64 `json:"ownership_percentage,omitempty" db:"ownership_percentage"`
	OwnershipType       *string  `json:"ownership_type,omitempty" db:"ownership_type"`
	ValidFrom           string   `json:"valid_from" db:"valid_from"`
	ValidTo             *string  `json:"valid_to,omitempty" db:"valid_to"`
	IsCurrent           bool     `json:"is_current" db:"is_current"`
	IsDerived           bool     `json:"is_derived" db:"is_derived"`
}

// DimensionalModel groups the six built tables handed to validation and
// loading as one read-only snapshot.
type DimensionalModel struct {
	DimProperty            []DimProperty
	DimEntity              []DimEntity
	DimEntityIdentifier    []DimEntityIdentifier
	FactTransaction        []FactTransaction
	BridgeTransactionParty []BridgeTransactionParty
	BridgePropertyOwner    []BridgePropertyOwner
}

// TotalRows is the record count across all six tables.
func (m *DimensionalModel) TotalRows() int {
	return len(m.DimProperty) +
		len(m.DimEntity) +
		len(m.DimEntityIdentifier) +
		len(m.FactTransaction) +
		len(m.BridgeTransactionParty) +
		len(m.BridgePropertyOwner)
}
