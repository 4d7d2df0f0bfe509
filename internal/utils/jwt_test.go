package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewAccessToken(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "holder-1", "ADMIN", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if until := time.Until(tok.Exp); until < 59*time.Minute || until > time.Hour {
		t.Fatalf("unexpected expiry %v", tok.Exp)
	}
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("expected valid token, got %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "holder-1" || claims["role"] != "ADMIN" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}
