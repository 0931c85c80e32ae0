package warehouse

import "strings"

// Fully qualified warehouse table names. Raw tables are append-only landing
// tables; analytics tables hold the dimensional model.
const (
	TableRawTransactions = "raw.cherre_transactions"
	TableRawGrantors     = "raw.cherre_grantors"
	TableRawGrantees     = "raw.cherre_grantees"
	TableRawProperties   = "raw.cherre_properties"

	TableDimProperty            = "analytics.dim_property"
	TableDimEntity              = "analytics.dim_entity"
	TableDimEntityIdentifier    = "analytics.dim_entity_identifier"
	TableFactTransaction        = "analytics.fact_transaction"
	TableBridgeTransactionParty = "analytics.bridge_transaction_party"
	TableBridgePropertyOwner    = "analytics.bridge_property_owner"
)

// ResolveTable maps a qualified table name to its physical location for the
// given environment. Prod keeps the declared schema; dev routes everything
// into a single dev schema with the schema folded into the table name, so
// one database can host isolated dev copies of every table.
//
//	prod: "raw.cherre_transactions" -> "raw.cherre_transactions"
//	dev:  "raw.cherre_transactions" -> "dev.raw_cherre_transactions"
func ResolveTable(environment, tableName string) string {
	schema := "public"
	table := tableName
	if i := strings.Index(tableName, "."); i >= 0 {
		schema = tableName[:i]
		table = tableName[i+1:]
	}

	if environment == "dev" {
		return "dev." + schema + "_" + table
	}
	return schema + "." + table
}
