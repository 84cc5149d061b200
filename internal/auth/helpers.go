package auth

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtKey = []byte(os.Getenv("JWT_KEY"))

// JWTClaims are the claims issued by the identity service.
type JWTClaims struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts the claims into a caller identity.
func (c *JWTClaims) Identity() Identity {
	role, _ := ParseRole(c.Role)
	return Identity{
		Email:    strings.ToLower(strings.TrimSpace(c.Email)),
		Name:     c.Name,
		Role:     role,
		TenantID: c.TenantID,
	}
}

// GenerateJWT signs an access token. Only used by tests and local tooling;
// tokens are normally issued elsewhere.
func GenerateJWT(name, email string, role Role, tenantID string, duration time.Duration) (string, error) {
	claims := &JWTClaims{
		Name:     name,
		Email:    email,
		Role:     string(role),
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateJWT parses and verifies an access token.
func ValidateJWT(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if _, known := ParseRole(claims.Role); !known {
		return nil, errors.New("unknown role")
	}
	return claims, nil
}

func GetJWTKey() []byte {
	return jwtKey
}

// SetJWTKey replaces the signing key.
func SetJWTKey(key []byte) {
	jwtKey = key
}
