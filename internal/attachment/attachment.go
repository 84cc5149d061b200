// Package attachment validates, stores and serves message attachments.
package attachment

import (
	"encoding/base64"
	"path"
	"regexp"
	"strconv"
	"strings"

	"CampusNotify/internal/apperr"
)

// MaxSize is the largest decoded attachment accepted.
const MaxSize = 10 * 1024 * 1024

// Upload is an attachment as received from the client.
type Upload struct {
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	Base64    string `json:"base64"`
	Inline    bool   `json:"inline"`
	ContentID string `json:"contentId"`
}

// Metadata describes a stored attachment on the message record.
type Metadata struct {
	FileName  string `bson:"file_name" json:"fileName"`
	MimeType  string `bson:"mime_type" json:"mimeType"`
	SizeBytes int64  `bson:"size_bytes" json:"sizeBytes"`
	SignedURL string `bson:"signed_url" json:"signedUrl"`
	ObjectKey string `bson:"object_key" json:"-"`
	Inline    bool   `bson:"inline" json:"inline"`
	ContentID string `bson:"content_id,omitempty" json:"contentId,omitempty"`
}

// Payload is a decoded attachment ready for a transport.
type Payload struct {
	FileName  string
	MimeType  string
	Content   []byte
	Inline    bool
	ContentID string
}

// IsInlineImage reports whether the payload renders inside the email body.
func (p Payload) IsInlineImage() bool {
	return p.Inline && p.ContentID != "" && strings.HasPrefix(strings.ToLower(p.MimeType), "image/")
}

// Decode validates every upload and returns the decoded payloads in order.
func Decode(uploads []Upload) ([]Payload, error) {
	out := make([]Payload, 0, len(uploads))
	for _, u := range uploads {
		name := strings.TrimSpace(u.FileName)
		if name == "" {
			name = "attachment"
		}
		raw := strings.TrimSpace(u.Base64)
		if raw == "" {
			return nil, apperr.Invalid("attachment %s is empty", name)
		}
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, apperr.Invalid("attachment %s is not valid base64", name)
		}
		if len(data) > MaxSize {
			return nil, apperr.Invalid("attachment %s exceeds the 10MB limit", name)
		}
		mime := strings.TrimSpace(u.MimeType)
		if mime == "" {
			mime = "application/octet-stream"
		}
		out = append(out, Payload{
			FileName:  name,
			MimeType:  mime,
			Content:   data,
			Inline:    u.Inline,
			ContentID: strings.TrimSpace(u.ContentID),
		})
	}
	return out, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// ObjectKey returns the deterministic storage key of an attachment.
func ObjectKey(tenantID, messageID, fileName string) string {
	tenant := strings.TrimSpace(tenantID)
	if tenant == "" {
		tenant = "global"
	}
	return "messages/" + tenant + "/" + messageID + "/" + unsafeChars.ReplaceAllString(fileName, "_")
}

// uniqueKey returns key, or key with a numeric suffix before the extension
// when it is already in used, and records the result.
func uniqueKey(key string, used map[string]bool) string {
	candidate := key
	ext := path.Ext(key)
	base := strings.TrimSuffix(key, ext)
	for i := 1; used[candidate]; i++ {
		candidate = base + "-" + strconv.Itoa(i) + ext
	}
	used[candidate] = true
	return candidate
}
