package utils

import (
	"errors"
	"testing"
	"time"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "notegen", time.Minute, time.Hour)

	pair, err := m.GenerateTokenPair("u-1", "a@example.com")
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if pair.ExpiresIn != 60 {
		t.Fatalf("expires_in = %d", pair.ExpiresIn)
	}

	claims, err := m.ParseTokenOfType(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "u-1" || claims.Email != "a@example.com" {
		t.Fatalf("claims = %+v", claims)
	}

	if _, err := m.ParseTokenOfType(pair.RefreshToken, TokenTypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token accepted as access: %v", err)
	}
}

func TestJWTManager_Expired(t *testing.T) {
	m := NewJWTManager("secret", "notegen", time.Minute, time.Hour)
	token, err := m.GenerateToken("u-1", "", TokenTypeAccess, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ParseToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	a := NewJWTManager("secret-a", "notegen", time.Minute, time.Hour)
	b := NewJWTManager("secret-b", "notegen", time.Minute, time.Hour)
	token, _ := a.GenerateToken("u-1", "", TokenTypeAccess, time.Minute)
	if _, err := b.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid, got %v", err)
	}
}
