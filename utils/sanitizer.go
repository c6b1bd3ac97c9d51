package utils

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all markup
	StrictPolicy *bluemonday.Policy
	// BodyPolicy allows the light formatting a generated email body may carry
	BodyPolicy *bluemonday.Policy
)

func init() {
	StrictPolicy = bluemonday.StrictPolicy()

	BodyPolicy = bluemonday.NewPolicy()
	BodyPolicy.AllowElements("br", "p", "div", "span")
	BodyPolicy.AllowElements("strong", "b", "em", "i", "u", "s")
	BodyPolicy.AllowElements("ul", "ol", "li", "blockquote")
	BodyPolicy.AllowAttrs("href").OnElements("a")
	BodyPolicy.RequireParseableURLs(true)
	BodyPolicy.AllowURLSchemes("http", "https", "mailto")
	BodyPolicy.RequireNoFollowOnLinks(true)
}

// BodyToHTML turns a plain-text body into compose-field markup, one <br> per newline
func BodyToHTML(body string) string {
	return BodyPolicy.Sanitize(strings.ReplaceAll(body, "\n", "<br>"))
}

// StripHTML removes all HTML tags from content
func StripHTML(html string) string {
	return StrictPolicy.Sanitize(html)
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	if max < 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// CoerceString converts a decoded JSON value to text. Missing and falsy values become "".
func CoerceString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
		return "true"
	case float64:
		if val == 0 {
			return ""
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// CleanField coerces, trims and truncates one free-form input field
func CleanField(v interface{}, max int) string {
	return Truncate(strings.TrimSpace(CoerceString(v)), max)
}
