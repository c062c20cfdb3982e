package schema

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"oferta/internal/util"
)

// FieldsFromHTML reads the column titles of a rendered dashboard table
// (`#tableID thead th`). With an empty tableID the first table with a
// header row is used.
func FieldsFromHTML(r io.Reader, tableID string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var head *goquery.Selection
	if tableID != "" {
		head = doc.Find("table#" + tableID + " thead").First()
	} else {
		doc.Find("table thead").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if sel.Find("th").Length() > 0 {
				head = sel
				return false
			}
			return true
		})
	}
	if head == nil || head.Length() == 0 {
		return nil, fmt.Errorf("no table header found (table=%q)", tableID)
	}

	out := []string{}
	head.Find("th").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, strings.TrimSpace(cell.Text()))
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("table %q has no header cells", tableID)
	}
	return out, nil
}

// SchemaFromHTML builds a schema from a dashboard table header. Columns
// whose normalized title matches a field of base inherit its kind.
func SchemaFromHTML(base *Schema, r io.Reader, tableID string) (*Schema, error) {
	names, err := FieldsFromHTML(r, tableID)
	if err != nil {
		return nil, err
	}

	kinds := map[string]Kind{}
	domain := ""
	if base != nil {
		domain = base.Domain
		for _, f := range base.fields {
			kinds[util.NormalizeHeader(f.Name)] = f.Kind
		}
	}

	fields := make([]Field, 0, len(names))
	seen := map[string]struct{}{}
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, Field{Name: name, Kind: kinds[util.NormalizeHeader(name)]})
	}
	return New(domain, fields...)
}
