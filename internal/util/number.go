package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reDotThousands   = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+$`)
	reCommaThousands = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+$`)
)

// ParseCount reads a spreadsheet counter cell. Anything that is not a
// number counts as zero; fractions are truncated.
func ParseCount(input string) int64 {
	token := normalizeNumericToken(input)
	if token == "" {
		return 0
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return 0
	}
	return d.IntPart()
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(strings.TrimSpace(token), "\u00a0", "")
	compact = strings.ReplaceAll(compact, " ", "")
	if reDotThousands.MatchString(compact) {
		return strings.ReplaceAll(compact, ".", "")
	}
	if reCommaThousands.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}

// CellString renders a decoded cell or API value as text. Integral floats
// lose their fraction so 45366.0 reads back as "45366".
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
