package attachment

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// URLTTL is the lifetime of a signed download URL.
const URLTTL = 30 * 24 * time.Hour

type downloadClaims struct {
	Key      string `json:"k"`
	FileName string `json:"n"`
	MimeType string `json:"m"`
	jwt.RegisteredClaims
}

// Signer issues and verifies download tokens for stored attachments.
type Signer struct {
	key     []byte
	baseURL string
	now     func() time.Time
}

func NewSigner(key []byte, baseURL string) *Signer {
	return &Signer{key: key, baseURL: baseURL, now: time.Now}
}

// URL returns a download URL for the object that expires after URLTTL.
func (s *Signer) URL(key, fileName, mimeType string) (string, error) {
	now := s.now()
	claims := &downloadClaims{
		Key:      key,
		FileName: fileName,
		MimeType: mimeType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(URLTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/attachments/" + token, nil
}

// Verify returns the object key, file name and mime type carried by token.
func (s *Signer) Verify(token string) (key, fileName, mimeType string, err error) {
	claims := &downloadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", "", "", err
	}
	if !parsed.Valid || claims.Key == "" {
		return "", "", "", errors.New("invalid download token")
	}
	return claims.Key, claims.FileName, claims.MimeType, nil
}
