package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"
)

var ErrNoTable = errors.New("no table with a header row found")

var reSpaces = regexp.MustCompile(`\s+`)

// DecodeXLSX reads the first sheet that has data. Its first non-blank row
// is the header row; blank rows are skipped and short rows padded with "".
// Cells keep their raw value, so date cells arrive as serial numbers.
func DecodeXLSX(content []byte) (SourceTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return SourceTable{}, err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return SourceTable{}, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if table, ok := tableFromGrid(rows); ok {
			return table, nil
		}
	}
	return SourceTable{}, ErrNoTable
}

// DecodeHTMLTable reads the first <table> with at least two rows; the first
// non-blank one holds the headers.
func DecodeHTMLTable(html string) (SourceTable, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return SourceTable{}, err
	}

	var out SourceTable
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		grid := [][]string{}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			grid = append(grid, cells)
		})
		if len(grid) < 2 {
			return true
		}
		out, found = tableFromGrid(grid)
		return !found
	})
	if !found {
		return SourceTable{}, ErrNoTable
	}
	return out, nil
}

func tableFromGrid(grid [][]string) (SourceTable, bool) {
	start := -1
	for i, row := range grid {
		if !blankRow(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return SourceTable{}, false
	}

	headers := headerNames(grid[start])
	table := SourceTable{Headers: headers, Rows: make([]SourceRow, 0, len(grid)-start-1)}
	for _, cells := range grid[start+1:] {
		if blankRow(cells) {
			continue
		}
		row := make(SourceRow, len(headers))
		for i, h := range headers {
			value := ""
			if i < len(cells) {
				value = cells[i]
			}
			row[h] = value
		}
		table.Rows = append(table.Rows, row)
	}
	return table, true
}

// headerNames names blank header cells __EMPTY and suffixes repeated
// titles with _1, _2, so every column keeps a distinct key.
func headerNames(cells []string) []string {
	out := make([]string, 0, len(cells))
	seen := map[string]int{}
	for _, c := range cells {
		name := strings.TrimSpace(c)
		if name == "" {
			name = "__EMPTY"
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out = append(out, name)
	}
	return out
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

type AttachmentKind string

const (
	AttachmentXLSX AttachmentKind = "xlsx"
	AttachmentHTML AttachmentKind = "html"
)

type Attachment struct {
	Name    string
	Kind    AttachmentKind
	Content []byte
}

// MailContent is what an inbound message offers for import.
type MailContent struct {
	Subject     string
	Attachments []Attachment
}

// ExtractSpreadsheets parses a raw message and keeps the parts that can
// hold a table: xlsx workbooks and html files.
func ExtractSpreadsheets(raw []byte) (MailContent, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return MailContent{}, err
	}

	out := MailContent{Subject: env.GetHeader("Subject")}
	parts := append([]*enmime.Part{}, env.Attachments...)
	parts = append(parts, env.Inlines...)
	parts = append(parts, env.OtherParts...)
	for _, part := range parts {
		name := strings.TrimSpace(part.FileName)
		kind, ok := attachmentKind(name)
		if !ok || len(part.Content) == 0 {
			continue
		}
		out.Attachments = append(out.Attachments, Attachment{Name: name, Kind: kind, Content: part.Content})
	}
	return out, nil
}

func attachmentKind(filename string) (AttachmentKind, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return AttachmentXLSX, true
	case ".html", ".htm":
		return AttachmentHTML, true
	default:
		return "", false
	}
}

func DecodeAttachment(a Attachment) (SourceTable, error) {
	switch a.Kind {
	case AttachmentXLSX:
		return DecodeXLSX(a.Content)
	case AttachmentHTML:
		return DecodeHTMLTable(string(a.Content))
	default:
		return SourceTable{}, fmt.Errorf("unsupported attachment kind: %s", a.Kind)
	}
}
