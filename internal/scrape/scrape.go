// Package scrape extracts receipt fields and line items from the rendered
// HTML of a fiscal verification page. Scalar fields are read by stable
// element id; line items come from an ordered chain of strategies that is
// evaluated until one yields a non-empty list.
package scrape

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/gofiscal/internal/numfmt"
)

// Element ids on the verification page. The portal renders these through
// Knockout bindings, so they are stable across receipts.
const (
	idTIN                     = "tinLabel"
	idShopName                = "shopFullNameLabel"
	idShopAddress             = "addressLabel"
	idCity                    = "cityLabel"
	idAdministrativeUnit      = "administrativeUnitLabel"
	idInvoiceNumber           = "invoiceNumberLabel"
	idTotalAmount             = "totalAmountLabel"
	idTransactionTypeCounter  = "transactionTypeCounterLabel"
	idTotalCounter            = "totalCounterLabel"
	idInvoiceCounterExtension = "invoiceCounterExtensionLabel"
	idSignedBy                = "signedByLabel"
	idSDCDateTime             = "sdcDateTimeLabel"
	idBuyerID                 = "buyerIdLabel"
	idRequestedBy             = "requestedByLabel"
	idInvoiceType             = "invoiceTypeId"
	idTransactionType         = "transactionTypeId"
	idStatus                  = "invoiceStatusLabel"
)

// SDC timestamps appear as "18.08.2026. 14:03:21", sometimes without the
// trailing dot after the year.
var sdcTimeLayouts = []string{
	"02.01.2006. 15:04:05",
	"02.01.2006 15:04:05",
}

// Fields holds the scalar receipt values read by element id. Missing
// elements default to empty string / zero and never raise.
type Fields struct {
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
	SDCDateTimeValid        bool
	BuyerID                 string
	RequestedBy             string
	InvoiceType             string
	TransactionType         string
	Status                  string
}

// Result is the full extractor output for one document.
type Result struct {
	Fields Fields
	Items  []LineItem
	// Strategy names the chain member that produced Items, for
	// diagnostics. Empty when no strategy found anything.
	Strategy string
	// Warnings lists numeric fields that defaulted to zero.
	Warnings []numfmt.Warning
	// Degraded is set when no scalar field was found at all, which
	// usually means the page never finished rendering.
	Degraded bool
}

// Parse extracts fields and items from rendered UTF-8 HTML. It never
// fails: malformed markup yields a degraded result with zero values.
func Parse(input []byte) Result {
	root, err := html.Parse(bytes.NewReader(input))
	if err != nil || root == nil {
		return Result{Degraded: true}
	}
	return parseDocument(root)
}

// ParseReader decodes HTML of unknown encoding (offline page dumps) and
// parses it. Only the decoding step can fail.
func ParseReader(r io.Reader) (Result, error) {
	dec, err := charset.NewReader(r, "text/html")
	if err != nil {
		return Result{Degraded: true}, err
	}
	b, err := io.ReadAll(dec)
	if err != nil {
		return Result{Degraded: true}, err
	}
	return Parse(b), nil
}

func parseDocument(root *html.Node) Result {
	var res Result
	warn := func(w *numfmt.Warning) {
		if w != nil {
			res.Warnings = append(res.Warnings, *w)
		}
	}

	raw := map[string]string{}
	ids := []string{
		idTIN, idShopName, idShopAddress, idCity, idAdministrativeUnit,
		idInvoiceNumber, idTotalAmount, idTransactionTypeCounter,
		idTotalCounter, idInvoiceCounterExtension, idSignedBy,
		idSDCDateTime, idBuyerID, idRequestedBy, idInvoiceType,
		idTransactionType, idStatus,
	}
	found := false
	for _, id := range ids {
		raw[id] = textByID(root, id)
		if raw[id] != "" {
			found = true
		}
	}
	res.Degraded = !found

	f := &res.Fields
	f.TIN = raw[idTIN]
	f.ShopName = raw[idShopName]
	f.ShopAddress = raw[idShopAddress]
	f.City = raw[idCity]
	f.AdministrativeUnit = raw[idAdministrativeUnit]
	f.InvoiceNumber = raw[idInvoiceNumber]
	f.InvoiceCounterExtension = raw[idInvoiceCounterExtension]
	f.SignedBy = raw[idSignedBy]
	f.BuyerID = raw[idBuyerID]
	f.RequestedBy = raw[idRequestedBy]
	f.InvoiceType = raw[idInvoiceType]
	f.TransactionType = raw[idTransactionType]
	f.Status = raw[idStatus]

	var w *numfmt.Warning
	f.TotalAmount, w = numfmt.Parse(raw[idTotalAmount])
	// An absent total is already covered by the degraded flag; only a
	// present-but-garbled total is worth a diagnostic.
	if raw[idTotalAmount] != "" {
		warn(w)
	}
	if f.TransactionTypeCounter, w = numfmt.ParseInt(raw[idTransactionTypeCounter]); raw[idTransactionTypeCounter] != "" {
		warn(w)
	}
	if f.TotalCounter, w = numfmt.ParseInt(raw[idTotalCounter]); raw[idTotalCounter] != "" {
		warn(w)
	}
	f.SDCDateTime, f.SDCDateTimeValid = parseSDCTime(raw[idSDCDateTime])

	items, name, itemWarns := extractItems(root)
	res.Items = items
	res.Strategy = name
	res.Warnings = append(res.Warnings, itemWarns...)
	return res
}

func parseSDCTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range sdcTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// textByID returns the collapsed text content of the element with the
// given id, or "" when absent.
func textByID(root *html.Node, id string) string {
	n := findByID(root, id)
	if n == nil {
		return ""
	}
	return nodeText(n)
}

func findByID(root *html.Node, id string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode {
			for _, a := range cur.Attr {
				if a.Key == "id" && a.Val == id {
					res = cur
					return
				}
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(root)
	return res
}

// nodeText collects and collapses all text under n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	return collapseSpaces(strings.TrimSpace(b.String()))
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
