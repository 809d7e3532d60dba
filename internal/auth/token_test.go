package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-signing-secret")
	issuedAt   = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func codecAt(t time.Time) *TokenCodec {
	return NewTokenCodec(testSecret, WithClock(fixedClock(t)))
}

// tamperSignature swaps one character in the middle of the signature segment
// so the decoded bytes always change.
func tamperSignature(t *testing.T, token string) string {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	i := len(sig) / 2
	if sig[i] == 'A' {
		sig[i] = 'B'
	} else {
		sig[i] = 'A'
	}
	parts[2] = string(sig)
	return strings.Join(parts, ".")
}

func TestTokenCodec_IssueAndVerify(t *testing.T) {
	c := codecAt(issuedAt)

	tok, err := c.Issue("user-1", time.Hour)
	require.NoError(t, err)
	assert.Len(t, strings.Split(tok, "."), 3)

	claims, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.True(t, claims.IssuedAt.Equal(issuedAt))
	assert.True(t, claims.ExpiresAt.Equal(issuedAt.Add(time.Hour)))
}

func TestTokenCodec_DeterministicForSameClock(t *testing.T) {
	a, err := codecAt(issuedAt).Issue("user-1", time.Hour)
	require.NoError(t, err)
	b, err := codecAt(issuedAt).Issue("user-1", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := codecAt(issuedAt.Add(time.Second)).Issue("user-1", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestTokenCodec_ExpiryBoundary(t *testing.T) {
	ttl := 2 * time.Hour
	tok, err := codecAt(issuedAt).Issue("user-1", ttl)
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{"at issuance", issuedAt, nil},
		{"midway", issuedAt.Add(ttl / 2), nil},
		{"one second before expiry", issuedAt.Add(ttl - time.Second), nil},
		{"exactly at expiry", issuedAt.Add(ttl), ErrExpired},
		{"after expiry", issuedAt.Add(ttl + time.Minute), ErrExpired},
		{"long after expiry", issuedAt.Add(30 * 24 * time.Hour), ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := codecAt(tt.at).Verify(tok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.Subject)
		})
	}
}

func TestTokenCodec_TamperDominatesExpiry(t *testing.T) {
	fresh, err := codecAt(issuedAt).Issue("user-1", time.Hour)
	require.NoError(t, err)
	expired, err := codecAt(issuedAt.Add(-2*time.Hour)).Issue("user-1", time.Hour)
	require.NoError(t, err)

	verifier := codecAt(issuedAt)

	_, err = verifier.Verify(expired)
	require.ErrorIs(t, err, ErrExpired, "sanity: untampered expired token")

	for name, tok := range map[string]string{"fresh": fresh, "expired": expired} {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(tamperSignature(t, tok))
			assert.ErrorIs(t, err, ErrSignatureInvalid)
			assert.NotErrorIs(t, err, ErrExpired)
		})
	}
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	tok, err := NewTokenCodec([]byte("other-secret"), WithClock(fixedClock(issuedAt))).Issue("user-1", time.Hour)
	require.NoError(t, err)

	_, err = codecAt(issuedAt).Verify(tok)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestTokenCodec_SwappedPayload(t *testing.T) {
	tok, err := codecAt(issuedAt).Issue("user-1", time.Hour)
	require.NoError(t, err)
	parts := strings.Split(tok, ".")

	payload := `{"sub":"admin","exp":` + "9999999999" + `}`
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(payload))

	_, err = codecAt(issuedAt).Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestTokenCodec_LastCharacterMutated(t *testing.T) {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	for _, ttl := range []time.Duration{time.Hour, -time.Hour} {
		for i := 0; i < 20; i++ {
			tok, err := codecAt(issuedAt).Issue(fmt.Sprintf("user-%d", i), ttl)
			require.NoError(t, err)

			last := strings.IndexByte(alphabet, tok[len(tok)-1])
			require.GreaterOrEqual(t, last, 0)
			// flipping the low bit only touches padding bits under strict decoding
			for _, repl := range []byte{alphabet[last^1], alphabet[(last+4)%64]} {
				mutated := tok[:len(tok)-1] + string(repl)
				_, err = codecAt(issuedAt).Verify(mutated)
				assert.ErrorIs(t, err, ErrSignatureInvalid, "ttl %v token %q", ttl, mutated)
			}
		}
	}
}

func TestTokenCodec_UnreadableClaimsStayMalformed(t *testing.T) {
	tok, err := codecAt(issuedAt).Issue("user-1", time.Hour)
	require.NoError(t, err)
	parts := strings.Split(tok, ".")

	for _, claims := range []string{"%%%", base64.RawURLEncoding.EncodeToString([]byte(`{"exp":"soon"}`))} {
		_, err = codecAt(issuedAt).Verify(parts[0] + "." + claims + ".!!!")
		assert.ErrorIs(t, err, ErrMalformed, claims)
	}
}

func TestTokenCodec_Malformed(t *testing.T) {
	c := codecAt(issuedAt)
	for _, tok := range []string{"", "abc", "a.b", "a.b.c", "not.a.jwt", "....", "eyJhbGciOiJIUzI1NiJ9.%%%.sig"} {
		_, err := c.Verify(tok)
		assert.ErrorIs(t, err, ErrMalformed, "token %q", tok)
	}
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = codecAt(issuedAt).Verify(none)
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	require.NoError(t, err)
	_, err = codecAt(issuedAt).Verify(hs512)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestTokenCodec_MissingClaims(t *testing.T) {
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString(testSecret)
	require.NoError(t, err)
	_, err = codecAt(issuedAt).Verify(noExp)
	assert.ErrorIs(t, err, ErrMalformed)

	noSub, err := codecAt(issuedAt).Issue("", time.Hour)
	require.NoError(t, err)
	_, err = codecAt(issuedAt).Verify(noSub)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestTokenCodec_NoSecret(t *testing.T) {
	c := NewTokenCodec(nil)

	_, err := c.Issue("user-1", time.Hour)
	assert.ErrorIs(t, err, ErrIssuanceFailed)

	_, err = c.Verify("a.b.c")
	require.Error(t, err)
	assert.False(t, IsRejection(err))
}
