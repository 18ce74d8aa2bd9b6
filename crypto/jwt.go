package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/matt-wisdom/WhoDat/domain"
)

const issuer = "whodat"

type sessionClaims struct {
	PlayerID string `json:"pid"`
	jwt.RegisteredClaims
}

// JWTManager signs and checks the guest session tokens that carry a player id.
type JWTManager struct {
	secretKey []byte
	maxAge    time.Duration
}

func NewJWTManager(secretKey string, maxAge time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		maxAge:    maxAge,
	}
}

func (m *JWTManager) MaxAge() time.Duration {
	return m.maxAge
}

func (m *JWTManager) Generate(playerID string, now time.Time) (string, error) {
	claims := sessionClaims{
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.UnexpectedTokenGenerationError, err)
	}
	return signed, nil
}

// Verify returns the player id carried by a token this manager signed.
func (m *JWTManager) Verify(tokenString string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.key, jwt.WithIssuer(issuer))
	if err != nil {
		return "", verifyError(err)
	}
	if !token.Valid || claims.PlayerID == "" {
		return "", domain.ErrCorruptedToken
	}
	return claims.PlayerID, nil
}

// key only hands out the secret for HMAC tokens.
func (m *JWTManager) key(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, domain.ErrInvalidSigningAlg
	}
	return m.secretKey, nil
}

func verifyError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidSigningAlg):
		return domain.ErrInvalidSigningAlg
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrExpiredToken
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return domain.ErrInvalidTokenSignature
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return domain.ErrCorruptedToken
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedTokenVerificationError, err)
}
