package usertoken

import (
	"net/http"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, secret, issuer, subject string, expires time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerifySubject(t *testing.T) {
	v, err := NewVerifier(Config{Secret: testSecret, Issuer: "flipbook-auth"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token := signToken(t, testSecret, "flipbook-auth", "user-42", time.Now().Add(time.Hour))
	subject, err := v.VerifySubject(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user-42" {
		t.Fatalf("subject = %q, want user-42", subject)
	}
}

func TestVerifySubjectRejectsWrongSecret(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: testSecret})
	token := signToken(t, "other-secret", defaultIssuer, "user-42", time.Now().Add(time.Hour))
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatalf("expected verification failure for wrong secret")
	}
}

func TestVerifySubjectRejectsWrongIssuer(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: testSecret, Issuer: "flipbook-auth"})
	token := signToken(t, testSecret, "someone-else", "user-42", time.Now().Add(time.Hour))
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatalf("expected verification failure for wrong issuer")
	}
}

func TestVerifySubjectRejectsExpired(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: testSecret, Leeway: time.Second})
	token := signToken(t, testSecret, defaultIssuer, "user-42", time.Now().Add(-time.Hour))
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatalf("expected verification failure for expired token")
	}
}

func TestVerifySubjectRejectsMissingSubject(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: testSecret})
	token := signToken(t, testSecret, defaultIssuer, "", time.Now().Add(time.Hour))
	if _, err := v.VerifySubject(token); err == nil {
		t.Fatalf("expected verification failure for empty subject")
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Fatalf("expected constructor error for empty secret")
	}
}

func TestBearerToken(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	if got := BearerToken(r); got != "" {
		t.Fatalf("BearerToken on empty header = %q", got)
	}
	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	if got := BearerToken(r); got != "abc.def.ghi" {
		t.Fatalf("BearerToken = %q", got)
	}
	r.Header.Set("Authorization", "Basic dXNlcg==")
	if got := BearerToken(r); got != "" {
		t.Fatalf("BearerToken on basic auth = %q", got)
	}
}
