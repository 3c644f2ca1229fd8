package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tableLinkAudience = "floor-table"

// TableClaims scope a customer device to one table.
type TableClaims struct {
	TableID uuid.UUID `json:"table_id"`
	Ordinal int       `json:"ordinal"`
	jwt.RegisteredClaims
}

// GenerateTableToken signs the link printed on a table's QR code.
func GenerateTableToken(secret string, tableID uuid.UUID, ordinal int, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TableClaims{
		TableID: tableID,
		Ordinal: ordinal,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tableID.String(),
			Audience:  jwt.ClaimStrings{tableLinkAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateTableToken(secret, tokenStr string) (*TableClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TableClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithAudience(tableLinkAudience))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*TableClaims)
	if !ok || !token.Valid || claims.TableID == uuid.Nil {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
