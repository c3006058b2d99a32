// Package convert maps an extracted SourceReceipt into the destination
// fiscal document schema, reapportions VAT into per-category buckets, and
// validates the result before it is returned.
package convert

// VAT categories of the destination schema.
const (
	VATNone       = 0
	VATZero       = 1 // registered at 0%
	VATStandard10 = 2
	VATStandard20 = 3
)

// Fixed destination-schema codes. These mirror what the downstream
// consumer expects for every converted receipt.
const (
	documentCode      = 3
	documentFormatVer = 4
	operationSale     = 1
	taxationSimple    = 2

	// The source registry has no fiscal drive; the consumer requires the
	// field, so a zero stand-in is used.
	fiscalDriveStub = "0000000000000000"
	registryURL     = "www.nalog.gov.rs"

	paymentTypeItem        = 4
	paymentTypePlaceholder = 1
	productTypeGoods       = 1
)

// placeholderName labels the single synthesized item used when no line
// items could be extracted. The downstream schema is Russian, hence the
// Russian wording.
const placeholderName = "Товары/услуги"

// Item is one converted line item. All monetary fields are integers in
// minor currency units.
type Item struct {
	Name        string `json:"name"`
	Quantity    int64  `json:"quantity"`
	Price       int64  `json:"price"`
	Sum         int64  `json:"sum"`
	NDS         int    `json:"nds"`
	PaymentType int    `json:"paymentType"`
	ProductType int    `json:"productType"`
}

// VATBucket aggregates VAT for one category across all items.
type VATBucket struct {
	NDS    int   `json:"nds"`
	NDSSum int64 `json:"ndsSum"`
}

// ReceiptVAT wraps the bucket list under the schema's field name.
type ReceiptVAT struct {
	AmountsNds []VATBucket `json:"amountsNds"`
}

// Receipt is the converted fiscal receipt. Field set and JSON names
// follow the destination schema exactly; optional fields marshal away
// when unset.
type Receipt struct {
	CashTotalSum            int64       `json:"cashTotalSum"`
	Code                    int         `json:"code"`
	CreditSum               int64       `json:"creditSum"`
	DateTime                string      `json:"dateTime"`
	EcashTotalSum           int64       `json:"ecashTotalSum"`
	FiscalDocumentFormatVer int         `json:"fiscalDocumentFormatVer"`
	FiscalDocumentNumber    int64       `json:"fiscalDocumentNumber"`
	FiscalDriveNumber       string      `json:"fiscalDriveNumber"`
	FiscalSign              int64       `json:"fiscalSign"`
	FnsURL                  string      `json:"fnsUrl"`
	Items                   []Item      `json:"items"`
	KKTRegID                string      `json:"kktRegId"`
	NDS0                    int64       `json:"nds0"`
	AmountsReceiptNds       *ReceiptVAT `json:"amountsReceiptNds,omitempty"`
	OperationType           int         `json:"operationType"`
	Operator                *string     `json:"operator,omitempty"`
	PrepaidSum              int64       `json:"prepaidSum"`
	ProvisionSum            int64       `json:"provisionSum"`
	RequestNumber           *int64      `json:"requestNumber,omitempty"`
	RetailPlace             string      `json:"retailPlace"`
	RetailPlaceAddress      string      `json:"retailPlaceAddress"`
	ShiftNumber             *int64      `json:"shiftNumber,omitempty"`
	TaxationType            int         `json:"taxationType"`
	AppliedTaxationType     int         `json:"appliedTaxationType"`
	TotalSum                int64       `json:"totalSum"`
	User                    string      `json:"user"`
	UserINN                 string      `json:"userInn"`
}

// Document, Ticket and FiscalDocument reproduce the fixed nesting the
// downstream consumer reads: document.receipt.* under a ticket.
type Document struct {
	Receipt Receipt `json:"receipt"`
}

type Ticket struct {
	Document Document `json:"document"`
}

// FiscalDocument is the outermost converted document. ID is a
// process-generated correlation id with no uniqueness guarantee;
// CreatedAt is copied from the source document's SDC timestamp, not the
// wall clock, so conversion stays deterministic apart from the id.
type FiscalDocument struct {
	ID        string `json:"_id"`
	CreatedAt string `json:"createdAt"`
	Ticket    Ticket `json:"ticket"`
}
