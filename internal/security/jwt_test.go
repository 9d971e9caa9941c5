package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, BearerClaims{
		Email: "jane@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	})
	signed, errSign := token.SignedString([]byte("not-the-real-secret"))
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}
	return signed
}

func TestTokenExpiryReadsBearer(t *testing.T) {
	expiry := time.Date(2025, time.January, 6, 9, 0, 0, 0, time.UTC)
	header := "Bearer " + signedToken(t, expiry)

	got, ok := TokenExpiry(header)
	if !ok || !got.Equal(expiry) {
		t.Fatalf("expected expiry %v, got %v ok=%v", expiry, got, ok)
	}
	claims, errParse := ParseBearer(header)
	if errParse != nil || claims.Email != "jane@example.com" {
		t.Fatalf("unexpected claims %+v err=%v", claims, errParse)
	}
	if !Expired(header, expiry.Add(time.Minute)) || Expired(header, expiry.Add(-time.Minute)) {
		t.Fatal("unexpected expiry comparison")
	}
}

func TestTokenExpiryOpaqueToken(t *testing.T) {
	if _, ok := TokenExpiry("Bearer opaque-value"); ok {
		t.Fatal("expected opaque token to have no expiry")
	}
	if Expired("opaque-value", time.Now()) {
		t.Fatal("opaque tokens are never treated as expired")
	}
	if _, errParse := ParseBearer("   "); errParse == nil {
		t.Fatal("expected error for empty header")
	}
}
