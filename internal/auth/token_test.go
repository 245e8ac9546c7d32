package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-secret-0123456789")
	testNow    = time.Unix(1_700_000_000, 0)
	testAdmin  = Principal{ID: 7, Username: "admin", Role: RoleAdmin}
)

func newPair(t *testing.T, secret []byte) (*Issuer, *Verifier) {
	t.Helper()
	iss, err := NewIssuer(secret, 0)
	require.NoError(t, err)
	ver, err := NewVerifier(secret)
	require.NoError(t, err)
	return iss, ver
}

func requireReason(t *testing.T, err error, want Reason) {
	t.Helper()
	require.Error(t, err)
	got, ok := ReasonOf(err)
	require.True(t, ok, "expected TokenError, got %v", err)
	assert.Equal(t, want, got)
}

func TestNewIssuerVerifier_RequireSecret(t *testing.T) {
	_, err := NewIssuer(nil, time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = NewVerifier([]byte{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssue_DefaultTTL(t *testing.T) {
	iss, _ := newPair(t, testSecret)
	assert.Equal(t, DefaultTokenTTL, iss.TTL())
	assert.Equal(t, 7*24*time.Hour, iss.TTL())
}

func TestIssue_ShapeAndDeterminism(t *testing.T) {
	iss, _ := newPair(t, testSecret)

	a, err := iss.Issue(testAdmin, testNow)
	require.NoError(t, err)
	b, err := iss.Issue(testAdmin, testNow.Add(300*time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, a, b, "sub-second differences must not change the token")
	assert.Len(t, strings.Split(a, "."), 3)

	var c jwt.MapClaims
	_, _, err = jwt.NewParser().ParseUnverified(a, &c)
	require.NoError(t, err)
	assert.EqualValues(t, 7, c["userId"])
	assert.Equal(t, "admin", c["username"])
	assert.Equal(t, "admin", c["role"])
	assert.EqualValues(t, testNow.Unix(), c["iat"])
	assert.EqualValues(t, testNow.Add(DefaultTokenTTL).Unix(), c["exp"])
}

func TestIssue_RejectsIncompletePrincipal(t *testing.T) {
	iss, _ := newPair(t, testSecret)
	_, err := iss.Issue(Principal{Username: "admin", Role: RoleAdmin}, testNow)
	assert.Error(t, err)
}

func TestVerify_RoundTripWithinTTL(t *testing.T) {
	iss, ver := newPair(t, testSecret)
	tok, err := iss.Issue(testAdmin, testNow)
	require.NoError(t, err)

	for _, k := range []time.Duration{0, time.Second, 24 * time.Hour, DefaultTokenTTL - time.Second} {
		p, err := ver.Verify(tok, testNow.Add(k))
		require.NoError(t, err, "k=%s", k)
		assert.Equal(t, testAdmin, p)
	}
}

func TestVerify_ExpiredAtAndAfterTTL(t *testing.T) {
	iss, ver := newPair(t, testSecret)
	tok, err := iss.Issue(testAdmin, testNow)
	require.NoError(t, err)

	for _, k := range []time.Duration{DefaultTokenTTL, DefaultTokenTTL + time.Second, 8 * 24 * time.Hour} {
		_, err := ver.Verify(tok, testNow.Add(k))
		requireReason(t, err, ReasonExpired)
	}
}

func TestVerify_Missing(t *testing.T) {
	_, ver := newPair(t, testSecret)
	_, err := ver.Verify("", testNow)
	requireReason(t, err, ReasonMissing)
}

func TestVerify_WrongSegmentCount(t *testing.T) {
	_, ver := newPair(t, testSecret)
	for _, raw := range []string{"abc", ".", "a.b", "a.b.c.d", "...", "not a token"} {
		_, err := ver.Verify(raw, testNow)
		requireReason(t, err, ReasonMalformed)
	}
}

func TestVerify_BitFlips(t *testing.T) {
	iss, ver := newPair(t, testSecret)
	tok, err := iss.Issue(testAdmin, testNow)
	require.NoError(t, err)
	parts := strings.Split(tok, ".")

	for seg := 1; seg <= 2; seg++ {
		for i := 0; i < len(parts[seg]); i++ {
			for bit := 0; bit < 8; bit++ {
				b := []byte(parts[seg])
				b[i] ^= 1 << bit
				if strings.ContainsRune(string(b), '.') {
					// a flipped separator changes the structure, not the signature
					continue
				}
				tampered := append([]string(nil), parts...)
				tampered[seg] = string(b)
				_, err := ver.Verify(strings.Join(tampered, "."), testNow)
				requireReason(t, err, ReasonBadSignature)
			}
		}
	}
}

func TestVerify_SecretsDoNotCrossValidate(t *testing.T) {
	issA, _ := newPair(t, []byte("secret-a"))
	_, verB := newPair(t, []byte("secret-b"))

	tok, err := issA.Issue(testAdmin, testNow)
	require.NoError(t, err)
	_, err = verB.Verify(tok, testNow)
	requireReason(t, err, ReasonBadSignature)
}

func TestVerify_OtherAlgorithmRejected(t *testing.T) {
	_, ver := newPair(t, testSecret)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"userId": 7, "username": "admin", "role": "admin",
		"iat": testNow.Unix(), "exp": testNow.Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = ver.Verify(tok, testNow)
	requireReason(t, err, ReasonBadSignature)
}

func TestVerify_PayloadIncomplete(t *testing.T) {
	_, ver := newPair(t, testSecret)
	full := jwt.MapClaims{
		"userId": 7, "username": "admin", "role": "admin",
		"iat": testNow.Unix(), "exp": testNow.Add(time.Hour).Unix(),
	}
	for _, drop := range []string{"userId", "username", "role", "iat", "exp"} {
		t.Run(drop, func(t *testing.T) {
			c := jwt.MapClaims{}
			for k, v := range full {
				if k != drop {
					c[k] = v
				}
			}
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(testSecret)
			require.NoError(t, err)

			_, err = ver.Verify(tok, testNow)
			requireReason(t, err, ReasonPayloadIncomplete)
		})
	}
}

func TestVerify_ZeroClaimsAreIncomplete(t *testing.T) {
	_, ver := newPair(t, testSecret)
	for name, c := range map[string]jwt.MapClaims{
		"zero userId": {"userId": 0, "username": "admin", "role": "admin", "iat": testNow.Unix(), "exp": testNow.Add(time.Hour).Unix()},
		"empty role":  {"userId": 7, "username": "admin", "role": "", "iat": testNow.Unix(), "exp": testNow.Add(time.Hour).Unix()},
		"zero iat":    {"userId": 7, "username": "admin", "role": "admin", "iat": 0, "exp": testNow.Add(time.Hour).Unix()},
	} {
		t.Run(name, func(t *testing.T) {
			tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(testSecret)
			require.NoError(t, err)
			_, err = ver.Verify(tok, testNow)
			requireReason(t, err, ReasonPayloadIncomplete)
		})
	}
}

func TestVerify_SignedGarbageIsMalformed(t *testing.T) {
	_, ver := newPair(t, testSecret)
	signing := "bm90LWpzb24.bm90LWpzb24"
	sig, err := jwt.SigningMethodHS256.Sign(signing, testSecret)
	require.NoError(t, err)

	_, err = ver.Verify(signing+"."+base64.RawURLEncoding.EncodeToString(sig), testNow)
	requireReason(t, err, ReasonMalformed)
}

func TestTokenError_Is(t *testing.T) {
	err := invalid(ReasonExpired)
	assert.ErrorIs(t, err, &TokenError{Reason: ReasonExpired})
	assert.NotErrorIs(t, err, &TokenError{Reason: ReasonMissing})
	assert.Equal(t, "token expired", ReasonExpired.Message())
}
