package renderer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/unicode/norm"
)

// Convertor rewrites a single string value before encoding
type Convertor func(string) string

// GB2312 decodes legacy GB2312/GBK text into UTF-8. Valid UTF-8 and text
// that fails to decode are returned unchanged.
func GB2312(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	out, err := simplifiedchinese.GBK.NewDecoder().String(s)
	if err != nil || strings.ContainsRune(out, utf8.RuneError) {
		return s
	}
	return out
}

// Trim removes leading and trailing white space
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// NFC normalizes to Unicode Normalization Form C
func NFC(s string) string {
	return norm.NFC.String(s)
}

var convertorsByName = map[string]Convertor{
	"gb2312": GB2312,
	"trim":   Trim,
	"nfc":    NFC,
}

// ByName returns the convertor registered under a configuration name
func ByName(name string) (Convertor, error) {
	c, ok := convertorsByName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown convertor %q", name)
	}
	return c, nil
}

// ByNames resolves a list of convertor names in order
func ByNames(names []string) ([]Convertor, error) {
	out := make([]Convertor, 0, len(names))
	for _, name := range names {
		c, err := ByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
