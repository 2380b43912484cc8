// Package htmltable extracts interface counter rows from the HTML fragment
// embedded in the router's statistics JSON.
package htmltable

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/irctrakz/routertraffic/pkg/core"
)

// Parse returns one row per <tr> that has at least one <td> cell, in document
// order. Header rows made only of <th> cells are skipped.
// The first cell is the interface name and every following cell is read as a
// non-negative integer, 0 when it does not parse. Parse never fails: markup the
// tokenizer cannot make sense of simply yields fewer rows.
func Parse(fragment string) []core.InterfaceRow {
	// Bare <tr> rows are dropped by the HTML5 parser outside a table context.
	doc, err := html.Parse(strings.NewReader("<table>" + fragment + "</table>"))
	if err != nil {
		return nil
	}

	var rows []core.InterfaceRow
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Tr {
			if row, ok := parseRow(n); ok {
				rows = append(rows, row)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}

func parseRow(tr *html.Node) (core.InterfaceRow, bool) {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Td {
			cells = append(cells, strings.TrimSpace(textContent(c)))
		}
	}
	if len(cells) == 0 {
		return core.InterfaceRow{}, false
	}

	counters := make([]uint64, 0, len(cells)-1)
	for _, cell := range cells[1:] {
		counters = append(counters, parseCounter(cell))
	}
	return core.InterfaceRow{Name: cells[0], Counters: counters}, true
}

func parseCounter(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}
