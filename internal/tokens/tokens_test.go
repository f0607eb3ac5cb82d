package tokens

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

func TestGenerateAndParse(t *testing.T) {
	iss := NewIssuer(secret)
	tokenStr, exp, err := iss.Generate("user-123", Access, 2*time.Minute)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %v", exp)
	}
	claims, err := iss.Parse(tokenStr, Access)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("unexpected sub claim: %v", claims.Subject)
	}
	if claims.Type != Access {
		t.Fatalf("unexpected type: %v", claims.Type)
	}
}

func TestParse_WrongTypeRejected(t *testing.T) {
	iss := NewIssuer(secret)
	tokenStr, _, err := iss.Generate("u1", Refresh, time.Minute)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if _, err := iss.Parse(tokenStr, Access); !errors.Is(err, ErrWrongType) {
		t.Fatalf("expected ErrWrongType, got %v", err)
	}
}

func TestGenerate_UniquePerCall(t *testing.T) {
	iss := NewIssuer(secret)
	a, _, _ := iss.Generate("u1", Refresh, time.Minute)
	b, _, _ := iss.Generate("u1", Refresh, time.Minute)
	if a == b {
		t.Fatalf("two tokens issued in the same second must differ")
	}
}

func TestParse_Expired(t *testing.T) {
	iss := NewIssuer(secret)
	base := time.Now()
	iss.now = func() time.Time { return base }
	tokenStr, _, err := iss.Generate("u2", Access, time.Second)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	iss.now = func() time.Time { return base.Add(2 * time.Second) }
	if _, err := iss.Parse(tokenStr, Access); err == nil {
		t.Fatalf("expected token parse to fail after expiry")
	}
}

func TestParse_WrongSecretFails(t *testing.T) {
	tokenStr, _, err := NewIssuer(secret).Generate("u3", Access, time.Minute)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if _, err := NewIssuer("different-secret-xxxxxxxxxxxxxxxx").Parse(tokenStr, Access); err == nil {
		t.Fatalf("expected parse to fail with wrong secret")
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := NewIssuer(secret).Parse("not.a.jwt", Access); err == nil {
		t.Fatalf("expected parse to fail for malformed token")
	}
}

// Rejected when alg=none (unsigned token)
func TestParse_AlgNoneRejected(t *testing.T) {
	payload := `{"sub":"u-none","type":"access","exp":9999999999}`
	tok := (&jwt.Token{}).EncodeSegment([]byte(`{"alg":"none"}`)) + "." + (&jwt.Token{}).EncodeSegment([]byte(payload)) + "."
	if _, err := NewIssuer(secret).Parse(tok, Access); err == nil {
		t.Fatalf("expected parse to reject alg=none token")
	}
}

// Tampering with payload must fail signature verification
func TestParse_TamperedPayload(t *testing.T) {
	iss := NewIssuer(secret)
	tokenStr, _, err := iss.Generate("user-t", Access, 5*time.Minute)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token parts")
	}
	payloadBytes, _ := jwt.NewParser().DecodeSegment(parts[1])
	parts[1] = (&jwt.Token{}).EncodeSegment([]byte(strings.Replace(string(payloadBytes), "user-t", "attacker", 1)))
	if _, err := iss.Parse(strings.Join(parts, "."), Access); err == nil {
		t.Fatalf("expected signature verification to fail for tampered token")
	}
}

func TestVerifyExposesClaims(t *testing.T) {
	iss := NewIssuer(secret)
	tokenStr, _, _ := iss.Generate("user-9", Access, time.Minute)
	tok, err := iss.Verify(context.Background(), tokenStr)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		t.Fatalf("claims: %v", err)
	}
	if claims["sub"] != "user-9" {
		t.Fatalf("unexpected sub: %v", claims["sub"])
	}

	refresh, _, _ := iss.Generate("user-9", Refresh, time.Minute)
	if _, err := iss.Verify(context.Background(), refresh); err == nil {
		t.Fatalf("refresh tokens must not authenticate requests")
	}
}
