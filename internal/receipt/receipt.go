// Package receipt defines the source-side receipt document: the receipt
// exactly as extracted from the verification page, before any schema
// conversion.
package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hyperifyio/gofiscal/internal/scrape"
)

// SourceReceipt is the assembled extractor output for one parse call. It
// is created once per call and treated as immutable afterwards.
type SourceReceipt struct {
	TIN                     string
	ShopName                string
	ShopAddress             string
	City                    string
	AdministrativeUnit      string
	InvoiceNumber           string
	TotalAmount             decimal.Decimal
	TransactionTypeCounter  int64
	TotalCounter            int64
	InvoiceCounterExtension string
	SignedBy                string
	SDCDateTime             time.Time
	// BuyerID is nil when the receipt names no buyer.
	BuyerID         *string
	RequestedBy     string
	InvoiceType     string
	TransactionType string
	Status          string
	Items           []scrape.LineItem
}

// Assemble combines extracted scalars and the raw item list into a
// SourceReceipt. It applies defaulting only: an empty buyer id becomes
// nil and an unparsed timestamp becomes the current time. There is no
// cross-field validation here; reconciliation happens after conversion.
func Assemble(fields scrape.Fields, items []scrape.LineItem) SourceReceipt {
	r := SourceReceipt{
		TIN:                     fields.TIN,
		ShopName:                fields.ShopName,
		ShopAddress:             fields.ShopAddress,
		City:                    fields.City,
		AdministrativeUnit:      fields.AdministrativeUnit,
		InvoiceNumber:           fields.InvoiceNumber,
		TotalAmount:             fields.TotalAmount,
		TransactionTypeCounter:  fields.TransactionTypeCounter,
		TotalCounter:            fields.TotalCounter,
		InvoiceCounterExtension: fields.InvoiceCounterExtension,
		SignedBy:                fields.SignedBy,
		RequestedBy:             fields.RequestedBy,
		InvoiceType:             fields.InvoiceType,
		TransactionType:         fields.TransactionType,
		Status:                  fields.Status,
		Items:                   items,
	}
	if fields.BuyerID != "" {
		id := fields.BuyerID
		r.BuyerID = &id
	}
	if fields.SDCDateTimeValid {
		r.SDCDateTime = fields.SDCDateTime
	} else {
		r.SDCDateTime = time.Now().UTC()
	}
	return r
}
