package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadTableFromInput decodes a file by type: xlsx, html or eml (first
// table attachment). An empty type is taken from the file extension.
func ReadTableFromInput(inputType, path string) (SourceTable, error) {
	if strings.TrimSpace(inputType) == "" {
		inputType = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return SourceTable{}, err
	}

	switch inputType {
	case "xlsx", "xlsm":
		return DecodeXLSX(blob)
	case "html", "htm":
		return DecodeHTMLTable(string(blob))
	case "eml":
		mail, err := ExtractSpreadsheets(blob)
		if err != nil {
			return SourceTable{}, err
		}
		for _, a := range mail.Attachments {
			table, err := DecodeAttachment(a)
			if err == nil {
				return table, nil
			}
		}
		return SourceTable{}, fmt.Errorf("%s: no spreadsheet attachment with a table", path)
	default:
		return SourceTable{}, fmt.Errorf("unsupported input type: %s", inputType)
	}
}
