// Package models defines the typed records flowing through the pipeline:
// raw vendor records, flattened rows, and the dimensional model.
package models

// RawTransaction is a deed/transaction record from the Cherre recorder_v2
// table, carrying nested grantor/grantee sub-records.
type RawTransaction struct {
	RecorderID             string   `json:"recorder_id"`
	TaxAssessorID          *string  `json:"tax_assessor_id,omitempty"`
	DocumentRecordedDate   *string  `json:"document_recorded_date,omitempty"`
	DocumentInstrumentDate *string  `json:"document_instrument_date,omitempty"`
	DocumentNumber         *string  `json:"document_number_formatted,omitempty"`
	DocumentTypeCode       *string  `json:"document_type_code,omitempty"`
	DocumentAmount         *float64 `json:"document_amount,omitempty"`
	TransferTaxAmount      *float64 `json:"transfer_tax_amount,omitempty"`
	ArmsLengthCode         *string  `json:"arms_length_code,omitempty"`
	InterFamilyFlag        *string  `json:"inter_family_flag,omitempty"`
	IsForeclosure          *bool    `json:"is_foreclosure_auction_sale,omitempty"`
	IsQuitClaim            *bool    `json:"is_quit_claim,omitempty"`
	NewConstructionFlag    *string  `json:"new_construction_flag,omitempty"`
	ResaleFlag             *string  `json:"resale_flag,omitempty"`
	PropertyAddress        *string  `json:"property_address,omitempty"`
	PropertyCity           *string  `json:"property_city,omitempty"`
	PropertyState          *string  `json:"property_state,omitempty"`
	PropertyZip            *string  `json:"property_zip,omitempty"`
	IngestDatetime         *string  `json:"cherre_ingest_datetime,omitempty"`

	Grantors []RawGrantor `json:"recorder_grantor_v2__recorder_id,omitempty"`
	Grantees []RawGrantee `json:"recorder_grantee_v2__recorder_id,omitempty"`
}

// RawGrantor is a seller party embedded on a transaction.
type RawGrantor struct {
	SourcePK   *int64  `json:"cherre_recorder_grantor_pk,omitempty"`
	Name       *string `json:"grantor_name,omitempty"`
	Address    *string `json:"grantor_address,omitempty"`
	EntityCode *string `json:"grantor_entity_code,omitempty"`
	FirstName  *string `json:"grantor_first_name,omitempty"`
	LastName   *string `json:"grantor_last_name,omitempty"`
}

// RawGrantee is a buyer party embedded on a transaction.
type RawGrantee struct {
	SourcePK   *int64  `json:"cherre_recorder_grantee_pk,omitempty"`
	Name       *string `json:"grantee_name,omitempty"`
	Address    *string `json:"grantee_address,omitempty"`
	EntityCode *string `json:"grantee_entity_code,omitempty"`
	FirstName  *string `json:"grantee_first_name,omitempty"`
	LastName   *string `json:"grantee_last_name,omitempty"`
}

// RawProperty is a current property attribute record from tax_assessor_v2.
// Rows land unchanged in raw storage, so the db tags mirror the source
// column names.
type RawProperty struct {
	TaxAssessorID      string   `json:"tax_assessor_id" db:"tax_assessor_id"`
	ParcelNumber       *string  `json:"assessor_parcel_number_raw,omitempty" db:"assessor_parcel_number_raw"`
	Address            *string  `json:"address,omitempty" db:"address"`
	City               *string  `json:"city,omitempty" db:"city"`
	State              *string  `json:"state,omitempty" db:"state"`
	Zip                *string  `json:"zip,omitempty" db:"zip"`
	County             *string  `json:"situs_county,omitempty" db:"situs_county"`
	UseCode            *string  `json:"property_use_standardized_code,omitempty" db:"property_use_standardized_code"`
	YearBuilt          *int     `json:"year_built,omitempty" db:"year_built"`
	BuildingSqFt       *float64 `json:"building_sq_ft,omitempty" db:"building_sq_ft"`
	LotSizeSqFt        *float64 `json:"lot_size_sq_ft,omitempty" db:"lot_size_sq_ft"`
	UnitsCount         *int     `json:"units_count,omitempty" db:"units_count"`
	AssessedValueTotal *float64 `json:"assessed_value_total,omitempty" db:"assessed_value_total"`
	MarketValueTotal   *float64 `json:"market_value_total,omitempty" db:"market_value_total"`
	Latitude           *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude          *float64 `json:"longitude,omitempty" db:"longitude"`
}

// RawPropertyHistory is an annual assessor snapshot from
// tax_assessor_history_v2. SourcePK orders same-year duplicates: the
// highest PK is the most recent insert and wins deduplication.
type RawPropertyHistory struct {
	TaxAssessorID      string   `json:"tax_assessor_id"`
	SnapshotYear       int      `json:"assessor_snap_shot_year"`
	AssessedValueTotal *float64 `json:"assessed_value_total,omitempty"`
	MarketValueTotal   *float64 `json:"market_value_total,omitempty"`
	LotSizeSqFt        *float64 `json:"lot_size_sq_ft,omitempty"`
	BuildingSqFt       *float64 `json:"building_sq_ft,omitempty"`
	SourcePK           int64    `json:"cherre_tax_assessor_history_v2_pk"`
	IngestDatetime     *string  `json:"cherre_ingest_datetime,omitempty"`
}

// RawOwner is an unmasked owner record from usa_owner_unmask_v2. OwnerID is
// the canonical composite identifier ("NAME::TYPE::STATE::ADDRESS").
type RawOwner struct {
	SourcePK         *int64  `json:"cherre_usa_owner_unmask_pk,omitempty"`
	OwnerID          string  `json:"owner_id"`
	OwnerName        *string `json:"owner_name,omitempty"`
	OwnerType        *string `json:"owner_type,omitempty"`
	OwnerState       *string `json:"owner_state,omitempty"`
	HasConfidence    *bool   `json:"has_confidence,omitempty"`
	OccurrencesCount *int    `json:"occurrences_count,omitempty"`
	LastSeenDate     *string `json:"last_seen_date,omitempty"`
	TaxAssessorID    *string `json:"tax_assessor_id,omitempty"`
}

// FlatTransaction is a transaction with embedded party lists removed and
// replaced by counts, suitable for append-only raw storage.
type FlatTransaction struct {
	RecorderID             string   `json:"recorder_id" db:"recorder_id"`
	TaxAssessorID          *string  `json:"tax_assessor_id,omitempty" db:"tax_assessor_id"`
	DocumentRecordedDate   *string  `json:"document_recorded_date,omitempty" db:"document_recorded_date"`
	DocumentInstrumentDate *string  `json:"document_instrument_date,omitempty" db:"document_instrument_date"`
	DocumentNumber         *string  `json:"document_number_formatted,omitempty" db:"document_number_formatted"`
	DocumentTypeCode       *string  `json:"document_type_code,omitempty" db:"document_type_code"`
	DocumentAmount         *float64 `json:"document_amount,omitempty" db:"document_amount"`
	TransferTaxAmount      *float64 `json:"transfer_tax_amount,omitempty" db:"transfer_tax_amount"`
	ArmsLengthCode         *string  `json:"arms_length_code,omitempty" db:"arms_length_code"`
	InterFamilyFlag        *string  `json:"inter_family_flag,omitempty" db:"inter_family_flag"`
	IsForeclosure          *bool    `json:"is_foreclosure_auction_sale,omitempty" db:"is_foreclosure_auction_sale"`
	IsQuitClaim            *bool    `json:"is_quit_claim,omitempty" db:"is_quit_claim"`
	NewConstructionFlag    *string  `json:"new_construction_flag,omitempty" db:"new_construction_flag"`
	ResaleFlag             *string  `json:"resale_flag,omitempty" db:"resale_flag"`
	PropertyAddress        *string  `json:"property_address,omitempty" db:"property_address"`
	PropertyCity           *string  `json:"property_city,omitempty" db:"property_city"`
	PropertyState          *string  `json:"property_state,omitempty" db:"property_state"`
	PropertyZip            *string  `json:"property_zip,omitempty" db:"property_zip"`
	IngestDatetime         *string  `json:"cherre_ingest_datetime,omitempty" db:"cherre_ingest_datetime"`
	GrantorCount           int      `json:"grantor_count" db:"grantor_count"`
	GranteeCount           int      `json:"grantee_count" db:"grantee_count"`
}

// FlatGrantor is one embedded grantor flattened to its own row, keyed back
// to the parent transaction by recorder_id.
type FlatGrantor struct {
	RecorderID string  `json:"recorder_id" db:"recorder_id"`
	SourcePK   *int64  `json:"cherre_recorder_grantor_pk,omitempty" db:"cherre_recorder_grantor_pk"`
	Name       *string `json:"grantor_name,omitempty" db:"grantor_name"`
	Address    *string `json:"grantor_address,omitempty" db:"grantor_address"`
	EntityCode *string `json:"grantor_entity_code,omitempty" db:"grantor_entity_code"`
	FirstName  *string `json:"grantor_first_name,omitempty" db:"grantor_first_name"`
	LastName   *string `json:"grantor_last_name,omitempty" db:"grantor_last_name"`
}

// FlatGrantee is one embedded grantee flattened to its own row.
type FlatGrantee struct {
	RecorderID string  `json:"recorder_id" db:"recorder_id"`
	SourcePK   *int64  `json:"cherre_recorder_grantee_pk,omitempty" db:"cherre_recorder_grantee_pk"`
	Name       *string `json:"grantee_name,omitempty" db:"grantee_name"`
	Address    *string `json:"grantee_address,omitempty" db:"grantee_address"`
	EntityCode *string `json:"grantee_entity_code,omitempty" db:"grantee_entity_code"`
	FirstName  *string `json:"grantee_first_name,omitempty" db:"grantee_first_name"`
	LastName   *string `json:"grantee_last_name,omitempty" db:"grantee_last_name"`
}
