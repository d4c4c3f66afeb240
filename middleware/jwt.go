package middleware

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload. A token grants control of one save.
type Claims struct {
	SaveID int64 `json:"save_id"`
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT for the given save with the given secret and TTL.
func GenerateToken(saveID int64, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		SaveID: saveID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "rmmz-charselect",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a JWT string and returns the claims.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SaveID <= 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
