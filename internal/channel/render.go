package channel

import (
	"bytes"
	"html/template"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// EmailView holds the values rendered into the branded email.
type EmailView struct {
	SchoolName     string
	LogoURL        string
	Heading        string
	SenderName     string
	SenderEmail    string
	Recipient      string
	RecipientName  string
	Content        string
	InlineImageCID string
}

// Renderer builds the HTML body of outgoing emails.
type Renderer struct {
	tmpl     *template.Template
	brand    string
	badgeURL string
}

func NewRenderer(brand, badgeURL string) *Renderer {
	return &Renderer{
		tmpl:     template.Must(template.New("email").Parse(emailTemplate)),
		brand:    brand,
		badgeURL: badgeURL,
	}
}

type emailData struct {
	School    string
	Logo      string
	Badge     string
	Brand     string
	Heading   string
	Sender    string
	Recipient string
	Content   template.HTML
}

// Render returns the HTML body for one recipient.
func (r *Renderer) Render(v EmailView) (string, error) {
	content := RenderContent(v.Content)
	if v.InlineImageCID != "" {
		content += `<p style="margin-top:12px;"><img src="cid:` + template.HTMLEscapeString(v.InlineImageCID) +
			`" alt="attached image" style="max-width:100%;"/></p>`
	}

	school := v.SchoolName
	if strings.TrimSpace(school) == "" {
		school = r.brand
	}
	heading := v.Heading
	if strings.TrimSpace(heading) == "" {
		heading = "Message"
	}
	sender := v.SenderName
	if sender == "" {
		sender = "User"
	}
	if v.SenderEmail != "" {
		sender += " (" + v.SenderEmail + ")"
	}

	data := emailData{
		School:    school,
		Logo:      v.LogoURL,
		Badge:     r.badgeURL,
		Brand:     r.brand,
		Heading:   heading,
		Sender:    sender,
		Recipient: recipientLine(v.Recipient, v.RecipientName),
		Content:   template.HTML(content),
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func recipientLine(email, name string) string {
	label := strings.TrimSpace(name)
	if label == "" {
		label = FormatRecipient(email)
	}
	switch {
	case label == "" && email == "":
		return "Recipient"
	case label == "" || label == email:
		return email
	default:
		return label + " · " + email
	}
}

var (
	boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)
	linkPattern = regexp.MustCompile(`(?i)(https?://[^\s<>"']+)`)
)

// RenderContent escapes message text and applies the light markup the
// composer supports: line breaks, **bold** and bare http(s) links.
func RenderContent(content string) string {
	escaped := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&#34;", "'", "&#39;", "\n", "<br/>").Replace(content)
	bold := boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
	return linkPattern.ReplaceAllString(bold,
		`<a href="$1" target="_blank" rel="noopener noreferrer" style="color:#0ea5e9;">$1</a>`)
}

// FormatRecipient turns an address local part into a display name:
// "maria.jose_perez@x" becomes "Maria Jose Perez".
func FormatRecipient(recipient string) string {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return ""
	}
	at := strings.Index(recipient, "@")
	if at < 0 {
		return recipient
	}
	local := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(recipient[:at])
	parts := strings.Fields(local)
	for i, p := range parts {
		r := []rune(strings.ToLower(p))
		r[0] = unicode.ToUpper(r[0])
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// TrackingURL returns the open-tracking URL for one recipient.
func TrackingURL(base, messageID, recipient string) string {
	if messageID == "" || strings.TrimSpace(recipient) == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/messages/" + messageID + "/track?recipient=" + url.QueryEscape(recipient)
}

// WithTrackingPixel appends an invisible 1x1 image pointing at trackingURL.
func WithTrackingPixel(html, trackingURL string) string {
	if trackingURL == "" {
		return html
	}
	return html + `<img src="` + template.HTMLEscapeString(trackingURL) +
		`" alt="" style="width:1px;height:1px;display:block;opacity:0;" />`
}

const emailTemplate = `<div style="margin:0;padding:0;background:#f5f7fb;width:100%;font-family:'Inter','Helvetica Neue',Arial,sans-serif;">
  <table role="presentation" cellspacing="0" cellpadding="0" border="0" align="center" style="width:100%;max-width:720px;margin:0 auto;padding:18px 14px;">
    <tr><td>
      <table role="presentation" cellspacing="0" cellpadding="0" border="0" style="width:100%;background:#ffffff;border-radius:18px;overflow:hidden;border:1px solid #e5e7eb;">
        <tr>
          <td style="padding:18px 20px;background:linear-gradient(135deg,#ff9f5a 0%,#ffc778 55%,#ffe9c7 100%);">
            <table role="presentation" width="100%" cellspacing="0" cellpadding="0" border="0">
              <tr>
                <td style="vertical-align:middle;width:68%;">
                  {{if .Logo}}<img src="{{.Logo}}" alt="{{.School}}" style="max-height:64px;width:auto;display:block;" />{{else if .Badge}}<img src="{{.Badge}}" alt="{{.Brand}}" style="height:48px;width:auto;display:block;" />{{end}}
                  <div style="font-size:17px;font-weight:800;color:#0f172a;">{{.School}}</div>
                  <div style="font-size:12px;font-weight:700;color:#1f2937;">Subject: {{.Heading}}</div>
                </td>
                <td style="vertical-align:middle;text-align:right;width:32%;">
                  <div style="font-size:12px;color:#0f172a;font-weight:700;">Sent by</div>
                  <div style="font-size:13px;color:#0f172a;font-weight:800;">{{.Sender}}</div>
                </td>
              </tr>
            </table>
          </td>
        </tr>
        <tr>
          <td style="padding:22px;background:#f7f8fb;">
            <table role="presentation" width="100%" cellspacing="0" cellpadding="0" border="0" style="background:#ffffff;border:1px solid #e5e7eb;border-radius:14px;padding:18px;">
              <tr><td style="padding-bottom:10px;">
                <span style="font-size:11px;font-weight:800;text-transform:uppercase;color:#6b7280;">To</span>
                <span style="font-size:12px;font-weight:700;color:#0f172a;background:#dbeafe;border-radius:999px;padding:6px 12px;display:inline-block;">{{.Recipient}}</span>
              </td></tr>
              <tr><td style="font-size:15px;color:#0f172a;line-height:1.6;word-break:break-word;">{{.Content}}</td></tr>
            </table>
            <p style="margin-top:16px;font-size:12px;color:#0f172a;line-height:1.5;">
              Please do not reply to this email; the mailbox is not monitored. Contact your school through its official channels.
            </p>
          </td>
        </tr>
      </table>
    </td></tr>
  </table>
</div>`
