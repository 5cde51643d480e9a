package harvest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare ampersand", "<t>Rock & Roll</t>", "<t>Rock &amp; Roll</t>"},
		{"known entities kept", "&amp; &lt; &gt; &quot; &apos;", "&amp; &lt; &gt; &quot; &apos;"},
		{"numeric entities kept", "&#038; &#x26;", "&#038; &#x26;"},
		{"unknown named entity escaped", "&nbsp;", "&amp;nbsp;"},
		{"trailing ampersand", "a &", "a &amp;"},
		{"control and non-ascii dropped", "a\x00b\x1fcèd", "abcd"},
		{"whitespace kept", "a\tb\nc\rd", "a\tb\nc\rd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Sanitize([]byte(tt.in))))
		})
	}
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "Tools & tips", Snippet("<p>Tools &#038; tips</p>"))
	assert.Equal(t, "Tools & tips", Snippet("Tools &amp;#038; tips"))
	assert.Equal(t, "a b", Snippet("  <b>a</b>\n\n<i>b</i> "))
	assert.Equal(t, "", Snippet(""))
}

func TestPickImage(t *testing.T) {
	content := `<p>x</p><IMG class="a" src='https://img.example/1.jpg'><img src="https://img.example/2.jpg">`

	assert.Equal(t, "https://enclosure.example/e.jpg", PickImage(content, "https://enclosure.example/e.jpg"))
	assert.Equal(t, "https://img.example/1.jpg", PickImage(content, ""))
	assert.Equal(t, "", PickImage("<p>no image</p>", ""))
	assert.Equal(t, "", PickImage("", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "àè", Truncate("àèì", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://calendar.example/...(redacted)", redactURL("https://calendar.example/private/token/basic.ics"))
	assert.Equal(t, "...(redacted)", redactURL("not a url"))
}
