package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTGenerateValidate(t *testing.T) {
	secret := []byte("s3cr3t")
	token, err := GenerateJWT("user1", "u@example.com", "admin", secret)
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}
	claims, err := ValidateJWT(token, secret)
	if err != nil {
		t.Fatalf("validate jwt: %v", err)
	}
	if claims.UserID != "user1" || claims.Email != "u@example.com" || claims.Role != "admin" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestJWTValidationEdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		setupToken  func() string
		secret      []byte
		expectError bool
		errorType   error
	}{
		{
			name: "valid token with correct secret",
			setupToken: func() string {
				token, _ := GenerateJWT("user1", "test@example.com", "user", []byte("correct-secret"))
				return token
			},
			secret:      []byte("correct-secret"),
			expectError: false,
		},
		{
			name: "valid token with wrong secret",
			setupToken: func() string {
				token, _ := GenerateJWT("user1", "test@example.com", "user", []byte("correct-secret"))
				return token
			},
			secret:      []byte("wrong-secret"),
			expectError: true,
			errorType:   ErrInvalidJWT,
		},
		{
			name: "expired token",
			setupToken: func() string {
				claims := &Claims{
					UserID: "user1",
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
						IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
					},
				}
				token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
				signed, _ := token.SignedString([]byte("correct-secret"))
				return signed
			},
			secret:      []byte("correct-secret"),
			expectError: true,
			errorType:   ErrExpiredJWT,
		},
		{
			name: "garbage token",
			setupToken: func() string {
				return "not.a.token"
			},
			secret:      []byte("correct-secret"),
			expectError: true,
			errorType:   ErrInvalidJWT,
		},
		{
			name: "token signed with none algorithm rejected",
			setupToken: func() string {
				token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user1"})
				signed, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
				return signed
			},
			secret:      []byte("correct-secret"),
			expectError: true,
			errorType:   ErrInvalidJWT,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			claims, err := ValidateJWT(tc.setupToken(), tc.secret)
			if tc.expectError {
				if err == nil {
					t.Fatalf("expected error, got claims %+v", claims)
				}
				if tc.errorType != nil && !errors.Is(err, tc.errorType) {
					t.Fatalf("expected %v, got %v", tc.errorType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
