package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/adsync/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	fp := cryptox.FingerprintToken("token")
	require.Len(t, fp, 43)
	require.Equal(t, fp, cryptox.FingerprintToken("token"))
	require.NotEqual(t, fp, cryptox.FingerprintToken("token2"))
}

func TestTokensEqual(t *testing.T) {
	t.Parallel()

	require.True(t, cryptox.TokensEqual("secret", "secret"))
	require.False(t, cryptox.TokensEqual("secret", "Secret"))
	require.False(t, cryptox.TokensEqual("secret", "secret-longer"))
	require.False(t, cryptox.TokensEqual("", "secret"))
}
