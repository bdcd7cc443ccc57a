package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/secureweb/auth-service/internal/errs"
)

func testCodec(t *testing.T, now func() time.Time) *Codec {
	t.Helper()
	c, err := New(Config{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		MfaSecret:     []byte("mfa-secret-for-tests"),
		Now:           now,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresAllSecrets(t *testing.T) {
	t.Parallel()

	_, err := New(Config{AccessSecret: []byte("a"), RefreshSecret: []byte("r")})
	require.Error(t, err)
	_, err = New(Config{RefreshSecret: []byte("r"), MfaSecret: []byte("m")})
	require.Error(t, err)
}

func TestSign_RequiresSubject(t *testing.T) {
	t.Parallel()
	c := testCodec(t, nil)

	_, _, err := c.Sign(Access, Payload{Email: "alice@example.com"})
	require.Error(t, err)
}

func TestSignVerify_RoundTripAllKinds(t *testing.T) {
	t.Parallel()
	c := testCodec(t, nil)

	for _, kind := range []Kind{Access, Refresh, MfaPending} {
		p := Payload{Subject: "user-1", Email: "alice@example.com"}
		if kind == Refresh {
			p.JTI = "jti-1"
		}
		signed, exp, err := c.Sign(kind, p)
		require.NoError(t, err)
		require.True(t, exp.After(time.Now()))

		got, err := c.Verify(kind, signed)
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
}

func TestVerify_CrossKindRejection(t *testing.T) {
	t.Parallel()
	c := testCodec(t, nil)

	signed, _, err := c.Sign(MfaPending, Payload{Subject: "user-1"})
	require.NoError(t, err)

	_, err = c.Verify(Access, signed)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
	_, err = c.Verify(Refresh, signed)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := testCodec(t, func() time.Time { return now })

	signed, _, err := c.Sign(Access, Payload{Subject: "user-1"})
	require.NoError(t, err)

	// Still valid just before expiry, uniformly invalid just after.
	now = now.Add(DefaultAccessTTL - time.Second)
	_, err = c.Verify(Access, signed)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = c.Verify(Access, signed)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestVerify_UniformFailures(t *testing.T) {
	t.Parallel()
	c := testCodec(t, nil)

	other := testCodec(t, nil)
	other.secrets[Access] = []byte("a different key entirely")
	forged, _, err := other.Sign(Access, Payload{Subject: "user-1"})
	require.NoError(t, err)

	for _, tok := range []string{"", "garbage", "a.b.c", forged} {
		_, err := c.Verify(Access, tok)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	}
}
