package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperifyio/gofiscal/internal/convert"
)

const samplePage = `<!doctype html>
<html>
  <body>
    <span id="tinLabel">112233445</span>
    <span id="shopFullNameLabel">Prodavnica 1</span>
    <span id="addressLabel">Bulevar 10</span>
    <span id="cityLabel">Beograd</span>
    <span id="invoiceNumberLabel">ABC123-XYZ987-12345</span>
    <span id="totalAmountLabel">1.679,98</span>
    <span id="transactionTypeCounterLabel">12101</span>
    <span id="totalCounterLabel">13640</span>
    <span id="signedByLabel">XYZ987</span>
    <span id="sdcDateTimeLabel">18.08.2026. 14:03:21</span>
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

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "receipt.html")
	if err := os.WriteFile(path, []byte(samplePage), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func readDocuments(t *testing.T, path string) []*convert.FiscalDocument {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var docs []*convert.FiscalDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	return docs
}

func TestRun_OfflinePipeline(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	a := New(Config{
		InputPath:  writeSample(t, dir),
		OutputPath: out,
	})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	docs := readDocuments(t, out)
	if len(docs) != 1 {
		t.Fatalf("documents = %d, want 1", len(docs))
	}
	r := docs[0].Ticket.Document.Receipt
	if r.TotalSum != 167998 {
		t.Fatalf("totalSum = %d", r.TotalSum)
	}
	if r.UserINN != "112233445" || r.User != "Prodavnica 1" {
		t.Fatalf("user = %q inn = %q", r.User, r.UserINN)
	}
	if len(r.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(r.Items))
	}
	if r.Items[0].Sum != 7999 || r.Items[1].Sum != 159999 {
		t.Fatalf("item sums = %d, %d", r.Items[0].Sum, r.Items[1].Sum)
	}
	if r.DateTime != "2026-08-18T14:03:21" {
		t.Fatalf("dateTime = %q", r.DateTime)
	}
	if len(docs[0].ID) != 24 {
		t.Fatalf("id = %q", docs[0].ID)
	}
}

func TestRun_DegradedInputStillConverts(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "empty.html")
	if err := os.WriteFile(in, []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	out := filepath.Join(dir, "out.json")
	a := New(Config{InputPath: in, OutputPath: out})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	docs := readDocuments(t, out)
	r := docs[0].Ticket.Document.Receipt
	if len(r.Items) != 1 {
		t.Fatalf("items = %d, want placeholder", len(r.Items))
	}
	if r.Items[0].Name != "Товары/услуги" || r.Items[0].Sum != 0 {
		t.Fatalf("placeholder = %+v", r.Items[0])
	}
}

func TestRun_WritesPDFArtifact(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.json")
	pdfOut := filepath.Join(dir, "out.pdf")
	a := New(Config{
		InputPath:     writeSample(t, dir),
		OutputPath:    out,
		OutputPDFPath: pdfOut,
	})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	st, err := os.Stat(pdfOut)
	if err != nil {
		t.Fatalf("stat pdf: %v", err)
	}
	if st.Size() == 0 {
		t.Fatalf("pdf artifact is empty")
	}
}

func TestRun_MissingInputFails(t *testing.T) {
	a := New(Config{
		InputPath:  filepath.Join(t.TempDir(), "missing.html"),
		OutputPath: filepath.Join(t.TempDir(), "out.json"),
	})
	if err := a.Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing input file")
	}
}

func TestFormatMinor(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{167998, "1679.98"},
		{7999, "79.99"},
		{100, "1.00"},
		{5, "0.05"},
		{0, "0.00"},
		{-101, "-1.01"},
	}
	for _, c := range cases {
		if got := formatMinor(c.in); got != c.want {
			t.Fatalf("formatMinor(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
