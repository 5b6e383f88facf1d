// Package adminjwt issues and parses the bearer tokens that protect the
// supplemental operator endpoints (SPEC_FULL.md §4.9). It is deliberately
// separate from the clearance/enrollment pipelines: no tenant identity
// flows through it, only a single operational scope claim.
package adminjwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token body: standard registered claims plus the fixed
// operator scope this service grants.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

const operatorScope = "operator"

// Generate signs a token good for expIn, scoped to operator access.
func Generate(secret string, expIn time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("adminjwt: empty secret")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expIn)),
		},
		Scope: operatorScope,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse validates tokenString and asserts it carries the operator scope.
func Parse(secret, tokenString string) error {
	if secret == "" {
		return fmt.Errorf("adminjwt: empty secret")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return fmt.Errorf("adminjwt: invalid claims")
	}
	if claims.Scope != operatorScope {
		return fmt.Errorf("adminjwt: wrong scope %q", claims.Scope)
	}
	return nil
}
