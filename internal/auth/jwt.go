package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken creates a signed token for the chat transport of one bot.
// The bot name travels as the subject. A zero ttl issues a token without
// expiry.
func GenerateToken(secret []byte, botName string, ttl time.Duration) (string, error) {
	// 1. Create the claims.
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  botName,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	// 2. Sign with HS256.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates a token string and returns the bot
// name it was issued for.
func ValidateToken(secret []byte, tokenString string) (string, error) {
	// 1. Parse, pinning the algorithm family.
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err // expired, malformed or badly signed
	}

	// 2. Read the subject.
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid subject claim")
	}
	return claims.Subject, nil
}
