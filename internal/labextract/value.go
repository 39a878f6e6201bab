package labextract

import (
	"regexp"
	"strings"
)

// valuePattern skips the separators that usually sit between a label and its
// result, then captures a whole number including any "." or "," groups so
// that "1.234,56" is not cut at the first separator. The integer part may be
// missing, as in ".5".
var valuePattern = regexp.MustCompile(`[\s:=,()\-]*(\d*[.,]\d+(?:[.,]\d+)*|\d+)`)

// ExtractValue returns the first number in suffix, normalised by
// NormalizeDecimal. The second result is false when suffix holds no number.
func ExtractValue(suffix string) (string, bool) {
	m := valuePattern.FindStringSubmatch(suffix)
	if m == nil {
		return "", false
	}
	return NormalizeDecimal(m[1]), true
}

// NormalizeDecimal rewrites a raw number so that "." is the decimal
// separator and no thousands separator remains.
//
//	"142,5"    -> "142.5"
//	"142.5"    -> "142.5"
//	"1.234,56" -> "1234.56"
//	"1,234.56" -> "1234.56"
//
// With one comma and one dot, whichever comes last is the decimal
// separator. Any other mix of separators is returned unchanged.
func NormalizeDecimal(raw string) string {
	commas := strings.Count(raw, ",")
	dots := strings.Count(raw, ".")

	switch {
	case commas == 1 && dots == 0:
		return strings.Replace(raw, ",", ".", 1)
	case commas == 0 && dots == 1:
		return raw
	case commas == 1 && dots == 1:
		if strings.Index(raw, ",") > strings.Index(raw, ".") {
			return strings.Replace(strings.ReplaceAll(raw, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(raw, ",", "")
	default:
		return raw
	}
}
