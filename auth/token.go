package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// Verifier validates opaque credentials presented at handshake and resolves
// them into a Principal. The signing key comes from configuration; token
// issuance itself belongs to the external auth service.
type Verifier struct {
	key []byte
}

func NewVerifier(key []byte) Verifier {
	return Verifier{key: key}
}

// Verify parses and validates the signature and expiration of a JWT string.
// Any failure maps to ErrUnauthenticated; the caller must not distinguish
// between a malformed, expired, or forged token.
func (v Verifier) Verify(tokenString string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	})
	if err != nil {
		return domain.Principal{}, apperrors.ErrUnauthenticated
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.Principal{}, apperrors.ErrUnauthenticated
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.UserID
	}
	return domain.Principal{ID: claims.UserID, DisplayName: name}, nil
}

// GenerateToken creates a signed JWT for a specific user. Kept for the dev
// token tool and tests; production tokens come from the auth collaborator.
func GenerateToken(key []byte, userID, displayName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "chat-relay",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}
