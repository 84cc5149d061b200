package channel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderContent(t *testing.T) {
	got := RenderContent("Hi <b>all</b> & **welcome**\nsee https://school.example/info now")

	assert.Contains(t, got, "Hi &lt;b&gt;all&lt;/b&gt; &amp; <strong>welcome</strong><br/>")
	assert.Contains(t, got, `<a href="https://school.example/info" target="_blank" rel="noopener noreferrer"`)
	assert.NotContains(t, got, "<b>")
}

func TestRenderContentLinkStopsAtMarkup(t *testing.T) {
	got := RenderContent("**http://a.example/x**")
	assert.Equal(t, `<strong><a href="http://a.example/x" target="_blank" rel="noopener noreferrer" style="color:#0ea5e9;">http://a.example/x</a></strong>`, got)
}

func TestRenderContentKeepsQuotesInsideHref(t *testing.T) {
	got := RenderContent(`see https://x.test/"onmouseover="alert(1)" and it's 'quoted'`)

	assert.NotContains(t, got, `"onmouseover`)
	assert.NotContains(t, got, `'quoted'`)
	assert.Contains(t, got, `<a href="https://x.test/&#34;onmouseover=&#34;alert(1)&#34;"`)
	assert.Contains(t, got, "it&#39;s")
}

func TestFormatRecipient(t *testing.T) {
	assert.Equal(t, "Maria Jose Perez", FormatRecipient("maria.jose_PEREZ@school.org"))
	assert.Equal(t, "Ana Lopez", FormatRecipient("ana-lopez@school.org"))
	assert.Equal(t, "no-at-sign", FormatRecipient("no-at-sign"))
	assert.Equal(t, "", FormatRecipient("  "))
}

func TestTrackingURLAndPixel(t *testing.T) {
	url := TrackingURL("https://notify.example.org/", "m1", "a+b@x.org")
	assert.Equal(t, "https://notify.example.org/messages/m1/track?recipient=a%2Bb%40x.org", url)

	html := WithTrackingPixel("<p>x</p>", url)
	assert.True(t, strings.HasPrefix(html, "<p>x</p><img src="))
	assert.Contains(t, html, "width:1px;height:1px;display:block;opacity:0;")

	assert.Equal(t, "", TrackingURL("https://n", "m1", " "))
	assert.Equal(t, "<p>x</p>", WithTrackingPixel("<p>x</p>", ""))
}

func TestRendererRender(t *testing.T) {
	r := NewRenderer("CampusNotify", "")

	html, err := r.Render(EmailView{
		SchoolName:     "Colegio <Norte>",
		Heading:        "Field trip",
		SenderName:     "Ana",
		SenderEmail:    "ana@school.org",
		Recipient:      "juan.perez@mail.org",
		Content:        "Bring **lunch**",
		InlineImageCID: "map",
	})
	require.NoError(t, err)

	assert.Contains(t, html, "Colegio &lt;Norte&gt;")
	assert.Contains(t, html, "Subject: Field trip")
	assert.Contains(t, html, "Ana (ana@school.org)")
	assert.Contains(t, html, "Juan Perez · juan.perez@mail.org")
	assert.Contains(t, html, "Bring <strong>lunch</strong>")
	assert.Contains(t, html, `src="cid:map"`)
}

func TestRendererFallsBackToBrand(t *testing.T) {
	html, err := NewRenderer("CampusNotify", "").Render(EmailView{Recipient: "x@y.org", RecipientName: "Guardian of Luis"})
	require.NoError(t, err)
	assert.Contains(t, html, "CampusNotify")
	assert.Contains(t, html, "Subject: Message")
	assert.Contains(t, html, "Guardian of Luis · x@y.org")
}
