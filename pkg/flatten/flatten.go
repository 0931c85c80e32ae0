// Package flatten turns nested vendor transaction records into flat rows
// suitable for append-only raw storage.
package flatten

import "github.com/nedl-data/nedl-etl/pkg/models"

// Result holds the three outputs of flattening one batch of transactions.
type Result struct {
	Transactions []models.FlatTransaction
	Grantors     []models.FlatGrantor
	Grantees     []models.FlatGrantee
}

// Transactions strips the embedded grantor/grantee lists off each
// transaction, replacing them with counts, and emits one flattened party row
// per embedded sub-record carrying the parent recorder_id. No record is
// dropped; output order follows input order.
func Transactions(raw []models.RawTransaction) Result {
	out := Result{
		Transactions: make([]models.FlatTransaction, 0, len(raw)),
	}

	for _, txn := range raw {
		out.Transactions = append(out.Transactions, models.FlatTransaction{
			RecorderID:             txn.RecorderID,
			TaxAssessorID:          txn.TaxAssessorID,
			DocumentRecordedDate:   txn.DocumentRecordedDate,
			DocumentInstrumentDate: txn.DocumentInstrumentDate,
			DocumentNumber:         txn.DocumentNumber,
			DocumentTypeCode:       txn.DocumentTypeCode,
			DocumentAmount:         txn.DocumentAmount,
			TransferTaxAmount:      txn.TransferTaxAmount,
			ArmsLengthCode:         txn.ArmsLengthCode,
			InterFamilyFlag:        txn.InterFamilyFlag,
			IsForeclosure:          txn.IsForeclosure,
			IsQuitClaim:            txn.IsQuitClaim,
			NewConstructionFlag:    txn.NewConstructionFlag,
			ResaleFlag:             txn.ResaleFlag,
			PropertyAddress:        txn.PropertyAddress,
			PropertyCity:           txn.PropertyCity,
			PropertyState:          txn.PropertyState,
			PropertyZip:            txn.PropertyZip,
			IngestDatetime:         txn.IngestDatetime,
			GrantorCount:           len(txn.Grantors),
			GranteeCount:           len(txn.Grantees),
		})

		for _, g := range txn.Grantors {
			out.Grantors = append(out.Grantors, models.FlatGrantor{
				RecorderID: txn.RecorderID,
				SourcePK:   g.SourcePK,
				Name:       g.Name,
				Address:    g.Address,
				EntityCode: g.EntityCode,
				FirstName:  g.FirstName,
				LastName:   g.LastName,
			})
		}

		for _, g := range txn.Grantees {
			out.Grantees = append(out.Grantees, models.FlatGrantee{
				RecorderID: txn.RecorderID,
				SourcePK:   g.SourcePK,
				Name:       g.Name,
				Address:    g.Address,
				EntityCode: g.EntityCode,
				FirstName:  g.FirstName,
				LastName:   g.LastName,
			})
		}
	}

	return out
}
