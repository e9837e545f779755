package jwtmw

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewGenerator は各種設定でGeneratorが正しく生成されることを検証します。
func TestNewGenerator(t *testing.T) {
	t.Parallel()

	gen := NewGenerator("my-secret-key", time.Hour)
	require.NotNil(t, gen)
	assert.Equal(t, "my-secret-key", string(gen.secret))
	assert.Equal(t, time.Hour, gen.expiration)
}

// TestGenerator_GenerateToken は生成されたトークンが有効で正しいクレームを含むことを検証します。
func TestGenerator_GenerateToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		subject    string
		expiration time.Duration
	}{
		{"dashboard", "dashboard", time.Hour},
		{"cli", "cli@laptop", 24 * time.Hour},
		{"long lived", "cron", 30 * 24 * time.Hour},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
			gen := NewGenerator("secret", tt.expiration)
			gen.now = func() time.Time { return fixed }

			signed, err := gen.GenerateToken(tt.subject)
			require.NoError(t, err)

			claims := &jwt.RegisteredClaims{}
			_, err = jwt.ParseWithClaims(signed, claims, func(*jwt.Token) (any, error) {
				return []byte("secret"), nil
			}, jwt.WithTimeFunc(func() time.Time { return fixed }))
			require.NoError(t, err)

			assert.Equal(t, Issuer, claims.Issuer)
			assert.Equal(t, tt.subject, claims.Subject)
			assert.True(t, claims.ExpiresAt.Time.Equal(fixed.Add(tt.expiration)))
		})
	}
}

func TestGenerator_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewGenerator("", time.Hour).GenerateToken("x")
	assert.Error(t, err)
}
