package harvest

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// knownEntities are the entity prefixes an '&' may start without being
// escaped. Numeric references are left for the XML decoder.
var knownEntities = [][]byte{
	[]byte("amp;"),
	[]byte("lt;"),
	[]byte("gt;"),
	[]byte("quot;"),
	[]byte("apos;"),
}

var (
	numericEntity = regexp.MustCompile(`^#(?:[0-9]{1,7}|[xX][0-9a-fA-F]{1,6});`)
	imgSrc        = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)`)
	htmlTag       = regexp.MustCompile(`<[^>]*>`)
	spaces        = regexp.MustCompile(`\s+`)
)

// Sanitize prepares a raw feed payload for XML parsing: bare '&' are escaped
// and every byte outside tab, LF, CR and printable ASCII is dropped.
func Sanitize(raw []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(raw) + len(raw)/16)

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '&':
			if isEntity(raw[i+1:]) {
				b.WriteByte(c)
			} else {
				b.WriteString("&amp;")
			}
		case c == '\t' || c == '\n' || c == '\r' || (c >= 0x20 && c <= 0x7e):
			b.WriteByte(c)
		}
	}
	return b.Bytes()
}

func isEntity(rest []byte) bool {
	for _, e := range knownEntities {
		if bytes.HasPrefix(rest, e) {
			return true
		}
	}
	return numericEntity.Match(rest)
}

// PickImage returns the enclosure URL, else the first <img src> in html.
func PickImage(htmlContent, enclosureURL string) string {
	if enclosureURL != "" {
		return enclosureURL
	}
	if htmlContent == "" {
		return ""
	}
	if m := imgSrc.FindStringSubmatch(htmlContent); m != nil {
		return m[1]
	}
	return ""
}

// Snippet turns an HTML fragment into plain text with entities decoded.
func Snippet(htmlContent string) string {
	text := htmlTag.ReplaceAllString(htmlContent, " ")
	// Feeds double-escape entities often enough (&amp;#038;) to unescape twice.
	text = html.UnescapeString(html.UnescapeString(text))
	return strings.TrimSpace(spaces.ReplaceAllString(text, " "))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
