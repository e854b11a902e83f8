package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-must-be-32-chars!"

func TestNewJWTService_ShortSecret(t *testing.T) {
	if _, err := NewJWTService("short", 0); err != ErrInvalidSecretLength {
		t.Fatalf("Expected ErrInvalidSecretLength, got: %v", err)
	}
}

func TestGenerateAndValidate(t *testing.T) {
	service, err := NewJWTService(testSecret, time.Minute)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	token, expiresAt, err := service.GenerateToken("ops", RoleAdmin)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if token == "" {
		t.Fatal("Expected non-empty token")
	}
	if time.Until(expiresAt) > time.Minute {
		t.Errorf("Expiry too far in the future: %v", expiresAt)
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("Expected valid token, got: %v", err)
	}
	if claims.Subject != "ops" || !claims.IsAdmin() || claims.Issuer != Issuer {
		t.Errorf("Unexpected claims: %+v", claims)
	}
}

func TestGenerateToken_InvalidRole(t *testing.T) {
	service, _ := NewJWTService(testSecret, 0)
	if _, _, err := service.GenerateToken("ops", "root"); err == nil {
		t.Fatal("Expected error for unknown role")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	service, _ := NewJWTService(testSecret, time.Minute)
	service.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := service.GenerateToken("ops", RoleViewer)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	service.now = time.Now
	if _, err := service.ValidateToken(token); err != ErrExpiredToken {
		t.Fatalf("Expected ErrExpiredToken, got: %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	a, _ := NewJWTService(testSecret, 0)
	b, _ := NewJWTService("another-secret-key-also-32-chars!!", 0)

	token, _, _ := a.GenerateToken("ops", RoleAdmin)
	if _, err := b.ValidateToken(token); err != ErrInvalidToken {
		t.Fatalf("Expected ErrInvalidToken, got: %v", err)
	}
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	service, _ := NewJWTService(testSecret, 0)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
		Role: RoleAdmin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign: %v", err)
	}

	if _, err := service.ValidateToken(token); err != ErrInvalidToken {
		t.Fatalf("Expected ErrInvalidToken, got: %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	service, _ := NewJWTService(testSecret, 0)
	if _, err := service.ValidateToken("not.a.token"); err != ErrInvalidToken {
		t.Fatalf("Expected ErrInvalidToken, got: %v", err)
	}
}
