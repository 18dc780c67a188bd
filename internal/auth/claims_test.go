package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/coursemate/internal/apperror"
)

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		name      string
		full      string
		wantFirst string
		wantLast  string
	}{
		{"two tokens", "Alice Smith", "Alice", "Smith"},
		{"middle initial stays in last name", "Jane Q Public", "Jane", "Q Public"},
		{"single token", "Cher", "Cher", ""},
		{"empty", "", "", ""},
		{"whitespace only", "   ", "", ""},
		{"extra spaces collapse", "  Alice   S.   Smith ", "Alice", "S. Smith"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := SplitFullName(tt.full)
			if first != tt.wantFirst || last != tt.wantLast {
				t.Errorf("SplitFullName(%q) = (%q, %q), want (%q, %q)",
					tt.full, first, last, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

// signTestToken mints an HS256 token the way Supabase would.
func signTestToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestBearerParser_VerifiedRoundTrip(t *testing.T) {
	p, err := NewBearerParser("supabase-jwt-secret-for-tests", false)
	if err != nil {
		t.Fatalf("NewBearerParser: %v", err)
	}

	token := signTestToken(t, "supabase-jwt-secret-for-tests", "sb-user-42")

	sub, err := p.Subject(token)
	if err != nil {
		t.Fatalf("Subject() error = %v", err)
	}
	if sub != "sb-user-42" {
		t.Errorf("Subject() = %q, want %q", sub, "sb-user-42")
	}
}

func TestBearerParser_WrongSecretRejected(t *testing.T) {
	p, _ := NewBearerParser("the-real-secret-here", false)

	token := signTestToken(t, "some-other-secret!!", "sb-user-42")

	_, err := p.Subject(token)
	if err == nil {
		t.Fatal("Subject() should reject a token signed with a different secret")
	}
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Subject() error = %v, want ErrUnauthorized", err)
	}
}

func TestBearerParser_TrustUnverified(t *testing.T) {
	// In trust mode the signature is never checked — a token signed with
	// any secret is decoded and believed.
	p, err := NewBearerParser("", true)
	if err != nil {
		t.Fatalf("NewBearerParser: %v", err)
	}

	token := signTestToken(t, "whatever-secret-at-all", "sb-user-99")

	sub, err := p.Subject(token)
	if err != nil {
		t.Fatalf("Subject() error = %v", err)
	}
	if sub != "sb-user-99" {
		t.Errorf("Subject() = %q, want %q", sub, "sb-user-99")
	}
}

func TestBearerParser_RequiresSecretWhenVerifying(t *testing.T) {
	if _, err := NewBearerParser("", false); err == nil {
		t.Fatal("NewBearerParser should refuse an empty secret outside trust mode")
	}
}

func TestBearerParser_MissingSubject(t *testing.T) {
	p, _ := NewBearerParser("supabase-jwt-secret-for-tests", false)

	token := signTestToken(t, "supabase-jwt-secret-for-tests", "")

	_, err := p.Subject(token)
	if err == nil {
		t.Fatal("Subject() should reject a token without a sub claim")
	}
}

func TestBearerParser_GarbageToken(t *testing.T) {
	p, _ := NewBearerParser("", true)

	_, err := p.Subject("not-a-token")
	if err == nil {
		t.Fatal("Subject() should reject garbage even in trust mode")
	}
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Subject() error = %v, want ErrUnauthorized", err)
	}
}
