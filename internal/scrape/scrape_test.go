package scrape

import (
	"strings"
	"testing"
	"time"
)

const samplePage = `<!doctype html>
<html>
  <head><title>Провера рачуна</title></head>
  <body>
    <span id="tinLabel">112233445</span>
    <span id="shopFullNameLabel">Prodavnica 1</span>
    <span id="addressLabel">Bulevar 10</span>
    <span id="cityLabel">Beograd</span>
    <span id="administrativeUnitLabel">Zvezdara</span>
    <span id="invoiceNumberLabel">ABC123-XYZ987-12345</span>
    <span id="totalAmountLabel">1.679,98</span>
    <span id="transactionTypeCounterLabel">12101</span>
    <span id="totalCounterLabel">13640</span>
    <span id="invoiceCounterExtensionLabel">ПП</span>
    <span id="signedByLabel">XYZ987</span>
    <span id="sdcDateTimeLabel">18.08.2026. 14:03:21</span>
    <span id="buyerIdLabel"></span>
    <span id="requestedByLabel">ABC123</span>
    <span id="invoiceTypeId">Промет</span>
    <span id="transactionTypeId">Продаја</span>
    <label id="invoiceStatusLabel">Активан</label>
    <div id="collapse-specs" class="collapse show">
      <table>
        <tbody data-bind="foreach: Specifications">
          <tr>
            <td>Slušalice BT</td><td>1,00</td><td>79,99</td><td>79,99</td>
            <td>72,72</td><td>7,27</td><td>Е</td>
          </tr>
          <tr>
            <td>Telefon X200</td><td>1,00</td><td>1.599,99</td><td>1.599,99</td>
            <td>1.333,33</td><td>266,66</td><td>Ђ</td>
          </tr>
        </tbody>
      </table>
    </div>
  </body>
</html>`

func TestParse_ScalarFields(t *testing.T) {
	res := Parse([]byte(samplePage))
	if res.Degraded {
		t.Fatalf("expected non-degraded result")
	}
	f := res.Fields
	if f.TIN != "112233445" {
		t.Fatalf("tin = %q", f.TIN)
	}
	if f.ShopName != "Prodavnica 1" || f.City != "Beograd" {
		t.Fatalf("shop = %q city = %q", f.ShopName, f.City)
	}
	if f.TotalAmount.String() != "1679.98" {
		t.Fatalf("total = %s", f.TotalAmount.String())
	}
	if f.TransactionTypeCounter != 12101 || f.TotalCounter != 13640 {
		t.Fatalf("counters = %d, %d", f.TransactionTypeCounter, f.TotalCounter)
	}
	if f.BuyerID != "" {
		t.Fatalf("buyer id = %q, want empty", f.BuyerID)
	}
	if !f.SDCDateTimeValid {
		t.Fatalf("sdc time not parsed")
	}
	want := time.Date(2026, 8, 18, 14, 3, 21, 0, time.UTC)
	if !f.SDCDateTime.Equal(want) {
		t.Fatalf("sdc time = %v, want %v", f.SDCDateTime, want)
	}
	if f.Status != "Активан" {
		t.Fatalf("status = %q", f.Status)
	}
}

func TestParse_ItemsViaBinding(t *testing.T) {
	res := Parse([]byte(samplePage))
	if res.Strategy != "structured-binding" {
		t.Fatalf("strategy = %q", res.Strategy)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(res.Items))
	}
	first := res.Items[0]
	if first.Name != "Slušalice BT" || first.Sum.String() != "79.99" {
		t.Fatalf("first item = %+v", first)
	}
	if first.TaxLabel != "Е" {
		t.Fatalf("first label = %q", first.TaxLabel)
	}
	second := res.Items[1]
	if second.TaxLabel != "Ђ" || second.Sum.String() != "1599.99" {
		t.Fatalf("second item = %+v", second)
	}
}

func TestParse_EmptyHTMLDegrades(t *testing.T) {
	for _, in := range []string{"", "<html></html>", "not html at all"} {
		res := Parse([]byte(in))
		if !res.Degraded {
			t.Fatalf("Parse(%q): expected degraded result", in)
		}
		if len(res.Items) != 0 {
			t.Fatalf("Parse(%q): unexpected items %v", in, res.Items)
		}
		if res.Fields.TIN != "" || !res.Fields.TotalAmount.IsZero() {
			t.Fatalf("Parse(%q): expected zero fields, got %+v", in, res.Fields)
		}
	}
}

func TestParse_MissingScalarsDefaultSilently(t *testing.T) {
	page := `<html><body><span id="tinLabel">123</span></body></html>`
	res := Parse([]byte(page))
	if res.Degraded {
		t.Fatalf("one field present should not degrade")
	}
	if res.Fields.ShopName != "" || res.Fields.TotalCounter != 0 {
		t.Fatalf("expected defaults, got %+v", res.Fields)
	}
}

func TestParse_SDCTimeWithoutTrailingDot(t *testing.T) {
	page := `<html><body><span id="sdcDateTimeLabel">01.02.2025 09:30:00</span></body></html>`
	res := Parse([]byte(page))
	if !res.Fields.SDCDateTimeValid {
		t.Fatalf("fallback layout not applied")
	}
	if res.Fields.SDCDateTime.Day() != 1 || res.Fields.SDCDateTime.Month() != 2 {
		t.Fatalf("sdc time = %v", res.Fields.SDCDateTime)
	}
}

func TestParseReader_DecodesCharset(t *testing.T) {
	page := `<html><head><meta charset="utf-8"></head><body><span id="tinLabel">987</span></body></html>`
	res, err := ParseReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if res.Fields.TIN != "987" {
		t.Fatalf("tin = %q", res.Fields.TIN)
	}
}
