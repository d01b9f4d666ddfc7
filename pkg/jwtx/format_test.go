package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sessioncache/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateFormat(t *testing.T) {
	cases := []struct {
		name  string
		token string
		ok    bool
	}{
		{"three segments", "aaa.bbb.ccc", true},
		{"base64url alphabet", "A-z_0.9-_.Zz09", true},
		{"empty", "", false},
		{"two segments", "aaa.bbb", false},
		{"four segments", "a.b.c.d", false},
		{"empty segment", "aaa..ccc", false},
		{"padding is rejected", "aaa=.bbb.ccc", false},
		{"standard base64 plus", "aa+a.bbb.ccc", false},
		{"whitespace", "aaa.b b.ccc", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := jwtx.ValidateFormat(tc.token)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, jwtx.ErrMalformed)
			}
			require.Equal(t, tc.ok, jwtx.IsWellFormed(tc.token))
		})
	}
}

func TestParseUnverified(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtx.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: "alice@example.com",
	}).SignedString([]byte("not-checked"))
	require.NoError(t, err)

	t.Run("reads claims without a key", func(t *testing.T) {
		claims, err := jwtx.ParseUnverified(signed)
		require.NoError(t, err)
		require.Equal(t, "user-123", claims.Subject)
		require.Equal(t, "alice@example.com", claims.Email)
	})

	t.Run("helpers", func(t *testing.T) {
		require.Equal(t, "user-123", jwtx.Subject(signed))

		got, ok := jwtx.ExpiresAt(signed)
		require.True(t, ok)
		require.True(t, exp.Equal(got))
	})

	t.Run("structurally valid garbage", func(t *testing.T) {
		_, err := jwtx.ParseUnverified("aaa.bbb.ccc")
		require.Error(t, err)
		require.Empty(t, jwtx.Subject("aaa.bbb.ccc"))
	})
}
