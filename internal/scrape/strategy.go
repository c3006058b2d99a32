package scrape

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/hyperifyio/gofiscal/internal/numfmt"
)

// LineItem is one purchased item/service line as extracted, before any
// schema conversion. Amounts are exact decimals in major currency units.
type LineItem struct {
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Sum       decimal.Decimal
	// TaxBase and VATAmount come from columns 5-6 when the table has
	// them; zero otherwise.
	TaxBase   decimal.Decimal
	VATAmount decimal.Decimal
	// TaxLabel is the free-text category marker from the last column.
	TaxLabel string
}

// defaultTaxLabel is assumed when a row carries no label column. "Е" is
// the portal's standard-rate marker.
const defaultTaxLabel = "Е"

// Strategy locates line items in a parsed document. Implementations are
// pure: same DOM in, same items out.
type Strategy interface {
	Name() string
	Extract(root *html.Node) ([]LineItem, []numfmt.Warning)
}

// chain returns the fixed priority list. Order matters: structured
// bindings are authoritative when present, the generic table scan covers
// pages whose bindings were stripped, and the free-text scan is the last
// resort for partially rendered markup.
func chain() []Strategy {
	return []Strategy{bindingStrategy{}, tableStrategy{}, freeTextStrategy{}}
}

// extractItems runs the chain until one strategy yields a non-empty list.
// The winner's name is reported for diagnostics.
func extractItems(root *html.Node) ([]LineItem, string, []numfmt.Warning) {
	for _, s := range chain() {
		items, warns := s.Extract(root)
		if len(items) > 0 {
			return items, s.Name(), warns
		}
	}
	return nil, "", nil
}

// bindingStrategy reads rows under nodes whose data-bind attribute
// references the Specifications collection. Knockout templates nest, so
// the same row can appear under several bound ancestors; rows are
// deduplicated by (name, quantity, price).
type bindingStrategy struct{}

func (bindingStrategy) Name() string { return "structured-binding" }

func (bindingStrategy) Extract(root *html.Node) ([]LineItem, []numfmt.Warning) {
	var items []LineItem
	var warns []numfmt.Warning
	seen := map[string]struct{}{}

	for _, bound := range findBound(root, "Specifications") {
		for _, row := range findAll(bound, "tr") {
			cells := rowCells(row)
			if len(cells) < 4 {
				continue
			}
			item, w, ok := parseItemRow(cells)
			if !ok {
				continue
			}
			key := item.Name + "|" + item.Quantity.String() + "|" + item.UnitPrice.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			items = append(items, item)
			warns = append(warns, w...)
		}
	}
	return items, warns
}

// tableStrategy scans every table row in the document and classifies a
// row as a line item when it has at least four cells, cells 2-4 parse as
// locale numbers, and cell 1 is non-empty.
type tableStrategy struct{}

func (tableStrategy) Name() string { return "generic-table" }

func (tableStrategy) Extract(root *html.Node) ([]LineItem, []numfmt.Warning) {
	var items []LineItem
	var warns []numfmt.Warning
	for _, row := range findAll(root, "tr") {
		cells := rowCells(row)
		if !isItemRow(cells) {
			continue
		}
		item, w, ok := parseItemRow(cells)
		if !ok {
			continue
		}
		items = append(items, item)
		warns = append(warns, w...)
	}
	return items, warns
}

var (
	localeNumberRe = regexp.MustCompile(`\d+[.,]\d+`)
	leadingNameRe  = regexp.MustCompile(`^([^0-9]+)`)
)

// freeTextStrategy scans visible text for lines carrying at least three
// locale-formatted numbers and infers name/quantity/price/sum
// positionally. It only ever runs against markup the other strategies
// could not read.
type freeTextStrategy struct{}

func (freeTextStrategy) Name() string { return "free-text" }

func (freeTextStrategy) Extract(root *html.Node) ([]LineItem, []numfmt.Warning) {
	var items []LineItem
	var warns []numfmt.Warning
	for _, line := range textLines(root) {
		if len(line) <= 10 {
			continue
		}
		nums := localeNumberRe.FindAllString(line, -1)
		if len(nums) < 3 {
			continue
		}
		name := "item"
		if m := leadingNameRe.FindStringSubmatch(line); m != nil {
			if s := collapseSpaces(strings.TrimSpace(m[1])); s != "" {
				name = s
			}
		}
		item := LineItem{Name: name, TaxLabel: defaultTaxLabel}
		collect := func(s string) decimal.Decimal {
			d, w := numfmt.Parse(s)
			if w != nil {
				warns = append(warns, *w)
			}
			return d
		}
		item.Quantity = collect(nums[0])
		item.UnitPrice = collect(nums[1])
		item.Sum = collect(nums[2])
		items = append(items, item)
	}
	return items, warns
}

// isItemRow applies the generic-table classification rule.
func isItemRow(cells []string) bool {
	if len(cells) < 4 {
		return false
	}
	if strings.TrimSpace(cells[0]) == "" {
		return false
	}
	for _, c := range cells[1:4] {
		if strings.TrimSpace(c) == "" {
			return false
		}
		if _, w := numfmt.Parse(c); w != nil {
			return false
		}
	}
	return true
}

// parseItemRow turns the cell texts of one row into a LineItem. Column
// order is fixed by the portal: name, quantity, unit price, sum, then
// optional tax base, VAT amount, and label.
func parseItemRow(cells []string) (LineItem, []numfmt.Warning, bool) {
	var warns []numfmt.Warning
	name := strings.TrimSpace(cells[0])
	if name == "" {
		return LineItem{}, nil, false
	}
	collect := func(s string) decimal.Decimal {
		d, w := numfmt.Parse(s)
		if w != nil {
			warns = append(warns, *w)
		}
		return d
	}
	item := LineItem{
		Name:      name,
		Quantity:  collect(cells[1]),
		UnitPrice: collect(cells[2]),
		Sum:       collect(cells[3]),
		TaxLabel:  defaultTaxLabel,
	}
	if len(cells) > 4 {
		item.TaxBase = collect(cells[4])
	}
	if len(cells) > 5 {
		item.VATAmount = collect(cells[5])
	}
	if len(cells) > 6 {
		if label := strings.TrimSpace(cells[6]); label != "" {
			item.TaxLabel = label
		}
	}
	return item, warns, true
}

// rowCells returns the collapsed text of each td/th cell in a row.
func rowCells(row *html.Node) []string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			switch strings.ToLower(c.Data) {
			case "td", "th":
				cells = append(cells, nodeText(c))
			}
		}
	}
	return cells
}

// findBound collects element nodes whose data-bind attribute mentions the
// given collection name.
func findBound(root *html.Node, collection string) []*html.Node {
	var out []*html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.ElementNode {
			for _, a := range cur.Attr {
				if a.Key == "data-bind" && strings.Contains(a.Val, collection) {
					out = append(out, cur)
					break
				}
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(root)
	return out
}

// findAll collects descendant elements with the given tag name.
func findAll(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			out = append(out, cur)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(root)
	return out
}

// textLines flattens the document's text nodes into lines, breaking at
// block-level boundaries so free-text scanning sees one candidate item
// per line.
func textLines(root *html.Node) []string {
	var b strings.Builder
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.ElementNode {
			switch strings.ToLower(cur.Data) {
			case "script", "style", "noscript":
				return
			case "tr", "p", "div", "li", "br", "table":
				b.WriteString("\n")
			}
		}
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(root)

	raw := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if t := collapseSpaces(strings.TrimSpace(line)); t != "" {
			out = append(out, t)
		}
	}
	return out
}
