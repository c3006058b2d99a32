package convert

import (
	"crypto/rand"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hyperifyio/gofiscal/internal/receipt"
)

const (
	correlationIDLen      = 24
	correlationIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Convert maps a SourceReceipt into the destination schema and validates
// the result. It fails closed: a reconciliation violation returns a
// *ReconciliationError and no document.
func Convert(src receipt.SourceReceipt) (*FiscalDocument, error) {
	items := convertItems(src)

	r := Receipt{
		Code:                    documentCode,
		FiscalDocumentFormatVer: documentFormatVer,
		DateTime:                src.SDCDateTime.Format("2006-01-02T15:04:05"),
		FiscalDocumentNumber:    src.TotalCounter,
		FiscalDriveNumber:       fiscalDriveStub,
		FiscalSign:              src.TransactionTypeCounter,
		FnsURL:                  registryURL,
		KKTRegID:                src.TIN,
		TotalSum:                minorUnits(src.TotalAmount),
		EcashTotalSum:           minorUnits(src.TotalAmount),
		OperationType:           operationSale,
		TaxationType:            taxationSimple,
		AppliedTaxationType:     taxationSimple,
		User:                    src.ShopName,
		UserINN:                 src.TIN,
		RetailPlace:             src.ShopName,
		RetailPlaceAddress:      src.ShopAddress + ", " + src.City,
		Items:                   items,
		AmountsReceiptNds:       vatBuckets(items),
	}
	if src.SignedBy != "" {
		op := src.SignedBy
		r.Operator = &op
	}

	if err := Validate(&r); err != nil {
		return nil, err
	}

	return &FiscalDocument{
		ID:        newCorrelationID(),
		CreatedAt: src.SDCDateTime.UTC().Format("2006-01-02T15:04:05") + "+00:00",
		Ticket:    Ticket{Document: Document{Receipt: r}},
	}, nil
}

// convertItems turns raw line items into schema items in minor units.
// When the source has no items at all, exactly one placeholder worth the
// receipt total is synthesized so the total is never silently dropped.
func convertItems(src receipt.SourceReceipt) []Item {
	if len(src.Items) == 0 {
		total := minorUnits(src.TotalAmount)
		return []Item{{
			Name:        placeholderName,
			Quantity:    1,
			Price:       total,
			Sum:         total,
			NDS:         VATStandard10,
			PaymentType: paymentTypePlaceholder,
			ProductType: productTypeGoods,
		}}
	}
	items := make([]Item, 0, len(src.Items))
	for _, raw := range src.Items {
		items = append(items, Item{
			Name:        raw.Name,
			Quantity:    raw.Quantity.IntPart(),
			Price:       minorUnits(raw.UnitPrice),
			Sum:         minorUnits(raw.Sum),
			NDS:         categoryForLabel(raw.TaxLabel),
			PaymentType: paymentTypeItem,
			ProductType: productTypeGoods,
		})
	}
	return items
}

// categoryForLabel maps the free-text tax marker to a VAT category. The
// portal labels standard 20% rows "Ђ", reduced 10% rows "Е" and exempt
// rows "А"; anything unrecognized falls back to the reduced rate so the
// item is never dropped.
func categoryForLabel(label string) int {
	switch {
	case strings.Contains(label, "Ђ") || strings.Contains(label, "20"):
		return VATStandard20
	case strings.Contains(label, "Е") || strings.Contains(label, "10"):
		return VATStandard10
	case strings.Contains(label, "А"):
		return VATZero
	default:
		return VATStandard10
	}
}

// vatForItem computes the item's VAT as a flat percentage of its sum,
// integer-truncated. The source system approximates this way instead of
// back-calculating tax-inclusive amounts; the convention is preserved
// deliberately for output compatibility.
func vatForItem(it Item) int64 {
	switch it.NDS {
	case VATStandard10:
		return it.Sum / 10
	case VATStandard20:
		return it.Sum / 5
	default:
		return 0
	}
}

// vatBuckets aggregates per-category VAT in first-seen category order.
// Zero-value buckets are omitted; nil is returned when nothing remains.
func vatBuckets(items []Item) *ReceiptVAT {
	sums := map[int]int64{}
	var order []int
	for _, it := range items {
		if _, ok := sums[it.NDS]; !ok {
			order = append(order, it.NDS)
		}
		sums[it.NDS] += vatForItem(it)
	}
	var buckets []VATBucket
	for _, nds := range order {
		if sums[nds] > 0 {
			buckets = append(buckets, VATBucket{NDS: nds, NDSSum: sums[nds]})
		}
	}
	if len(buckets) == 0 {
		return nil
	}
	return &ReceiptVAT{AmountsNds: buckets}
}

// minorUnits converts a major-unit decimal into integer minor units with
// half-up rounding.
func minorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// newCorrelationID returns a fixed-length alphanumeric id. It is random
// but deliberately not guaranteed unique across calls; the consumer only
// uses it for correlation.
func newCorrelationID() string {
	buf := make([]byte, correlationIDLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; a constant id
		// still satisfies the non-unique contract.
		return strings.Repeat("0", correlationIDLen)
	}
	out := make([]byte, correlationIDLen)
	for i, b := range buf {
		out[i] = correlationIDAlphabet[int(b)%len(correlationIDAlphabet)]
	}
	return string(out)
}
