package scrape

import (
	"bytes"
	"testing"

	"golang.org/x/net/html"
)

func parseRoot(t *testing.T, page string) *html.Node {
	t.Helper()
	root, err := html.Parse(bytes.NewReader([]byte(page)))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return root
}

// A document carrying both a Specifications binding and a conflicting
// generic table must yield only the binding rows.
func TestExtractItems_BindingTakesPrecedence(t *testing.T) {
	page := `<html><body>
	<table><tbody data-bind="foreach: Specifications">
	  <tr><td>Hleb</td><td>2,00</td><td>60,00</td><td>120,00</td></tr>
	</tbody></table>
	<table><tbody>
	  <tr><td>Mleko</td><td>1,00</td><td>99,99</td><td>99,99</td></tr>
	  <tr><td>Jogurt</td><td>3,00</td><td>50,00</td><td>150,00</td></tr>
	</tbody></table>
	</body></html>`

	items, name, _ := extractItems(parseRoot(t, page))
	if name != "structured-binding" {
		t.Fatalf("strategy = %q", name)
	}
	if len(items) != 1 || items[0].Name != "Hleb" {
		t.Fatalf("items = %+v, want only the bound row", items)
	}
}

// Nested bindings repeat the same rows; the composite key dedupe keeps a
// single copy.
func TestBindingStrategy_DeduplicatesNestedRows(t *testing.T) {
	page := `<html><body>
	<div data-bind="with: Specifications">
	<table><tbody data-bind="foreach: Specifications">
	  <tr><td>Kafa</td><td>1,00</td><td>299,99</td><td>299,99</td></tr>
	</tbody></table>
	</div>
	</body></html>`

	items, _ := bindingStrategy{}.Extract(parseRoot(t, page))
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 after dedupe", len(items))
	}
}

func TestTableStrategy_ClassifiesRows(t *testing.T) {
	page := `<html><body><table>
	  <tr><th>Naziv</th><th>Kol.</th><th>Cena</th><th>Ukupno</th></tr>
	  <tr><td>Sok</td><td>2,00</td><td>120,50</td><td>241,00</td></tr>
	  <tr><td></td><td>1,00</td><td>10,00</td><td>10,00</td></tr>
	  <tr><td>Samo tekst</td><td>abc</td><td>def</td><td>ghi</td></tr>
	  <tr><td>Kratko</td><td>1,00</td></tr>
	</table></body></html>`

	items, _ := tableStrategy{}.Extract(parseRoot(t, page))
	if len(items) != 1 {
		t.Fatalf("items = %+v, want exactly the one valid row", items)
	}
	if items[0].Name != "Sok" || items[0].Sum.String() != "241" {
		t.Fatalf("item = %+v", items[0])
	}
}

func TestTableStrategy_ReadsOptionalTaxColumns(t *testing.T) {
	page := `<html><body><table>
	  <tr><td>Usluga</td><td>1,00</td><td>500,00</td><td>500,00</td>
	      <td>416,67</td><td>83,33</td><td>Ђ</td></tr>
	</table></body></html>`

	items, _ := tableStrategy{}.Extract(parseRoot(t, page))
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	it := items[0]
	if it.TaxBase.String() != "416.67" || it.VATAmount.String() != "83.33" || it.TaxLabel != "Ђ" {
		t.Fatalf("tax columns = %+v", it)
	}
}

func TestFreeTextStrategy_InfersPositionally(t *testing.T) {
	page := `<html><body>
	<div>Stavka prva 1,00 250,00 250,00</div>
	<div>kratko 1,0</div>
	</body></html>`

	items, _ := freeTextStrategy{}.Extract(parseRoot(t, page))
	if len(items) != 1 {
		t.Fatalf("items = %+v, want 1", items)
	}
	it := items[0]
	if it.Name != "Stavka prva" {
		t.Fatalf("name = %q", it.Name)
	}
	if it.Quantity.String() != "1" || it.UnitPrice.String() != "250" || it.Sum.String() != "250" {
		t.Fatalf("numbers = %s %s %s", it.Quantity, it.UnitPrice, it.Sum)
	}
	if it.TaxLabel != defaultTaxLabel {
		t.Fatalf("label = %q", it.TaxLabel)
	}
}

func TestExtractItems_NothingFound(t *testing.T) {
	items, name, warns := extractItems(parseRoot(t, `<html><body><p>prazno</p></body></html>`))
	if items != nil || name != "" || warns != nil {
		t.Fatalf("expected empty result, got %v %q %v", items, name, warns)
	}
}
