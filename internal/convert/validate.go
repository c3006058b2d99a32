package convert

import "fmt"

// ReconcileTolerance is the maximum allowed discrepancy, in minor
// currency units, between computed and stated amounts. Rounding of
// locale-formatted numbers can legitimately drift by a few units.
const ReconcileTolerance = 5

// Invariant names used in ReconciliationError.
const (
	InvariantItemSum    = "item sum = quantity x price"
	InvariantReceiptSum = "receipt total = sum of item sums"
)

// ReconciliationError reports a monetary invariant violation. Conversion
// aborts on it; amounts are never silently corrected.
type ReconciliationError struct {
	Invariant string
	// Item names the offending line item, empty for receipt-level checks.
	Item string
	Got  int64
	Want int64
}

func (e *ReconciliationError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("reconciliation failed for item %q: %s (got %d, want %d ±%d)",
			e.Item, e.Invariant, e.Got, e.Want, ReconcileTolerance)
	}
	return fmt.Sprintf("reconciliation failed: %s (got %d, want %d ±%d)",
		e.Invariant, e.Got, e.Want, ReconcileTolerance)
}

// Validate enforces the reconciliation invariants on a converted receipt
// at integer minor-unit precision. It returns the first violation found.
func Validate(r *Receipt) error {
	var itemsSum int64
	for _, it := range r.Items {
		expected := it.Quantity * it.Price
		if abs(it.Sum-expected) > ReconcileTolerance {
			return &ReconciliationError{
				Invariant: InvariantItemSum,
				Item:      it.Name,
				Got:       it.Sum,
				Want:      expected,
			}
		}
		itemsSum += it.Sum
	}
	if abs(r.TotalSum-itemsSum) > ReconcileTolerance {
		return &ReconciliationError{
			Invariant: InvariantReceiptSum,
			Got:       r.TotalSum,
			Want:      itemsSum,
		}
	}
	return nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
