package credential

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voiceqa/internal/domain"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	for _, plaintext := range []string{"sk-test-1234567890", "", "ключ с юникодом ✓"} {
		blob, err := Encrypt(plaintext, key)
		require.NoError(t, err)
		assert.Len(t, []byte(blob), domain.NonceSize+len(plaintext)+16)

		got, err := Decrypt(blob, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	b1, err := Encrypt("same input", key)
	require.NoError(t, err)
	b2, err := Encrypt("same input", key)
	require.NoError(t, err)

	assert.NotEqual(t, b1, b2)
	assert.False(t, bytes.Equal(b1[:domain.NonceSize], b2[:domain.NonceSize]), "nonces must differ")
}

func TestDecryptDetectsTampering(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	blob, err := Encrypt("sk-secret", key)
	require.NoError(t, err)

	for i := range blob {
		tampered := bytes.Clone(blob)
		tampered[i] ^= 0x01

		got, err := Decrypt(tampered, key)
		require.Errorf(t, err, "flipping byte %d must fail", i)
		assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
		assert.Empty(t, got)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	k1, _ := GenerateKey()
	k2, _ := GenerateKey()

	blob, err := Encrypt("sk-secret", k1)
	require.NoError(t, err)

	_, err = Decrypt(blob, k2)
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestDecryptShortBlob(t *testing.T) {
	key, _ := GenerateKey()

	_, err := Decrypt(domain.EncryptedBlob{1, 2, 3}, key)
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)

	_, err = Decrypt(nil, key)
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
}

func TestExportImportRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	blob, err := Encrypt("sk-roundtrip", key)
	require.NoError(t, err)

	exported, err := ExportKey(key)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(exported, &fields))
	assert.Equal(t, "oct", fields["kty"])
	assert.Equal(t, "A256GCM", fields["alg"])

	imported, err := ImportKey(exported)
	require.NoError(t, err)

	got, err := Decrypt(blob, imported)
	require.NoError(t, err)
	assert.Equal(t, "sk-roundtrip", got)
}

func TestImportKeyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{`},
		{"wrong kty", `{"kty":"RSA","k":"AAAA"}`},
		{"bad base64", `{"kty":"oct","k":"!!!"}`},
		{"short key", `{"kty":"oct","k":"AAAA"}`},
		{"decrypt not allowed", `{"kty":"oct","k":"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA","key_ops":["encrypt"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportKey([]byte(tt.data))
			assert.ErrorIs(t, err, domain.ErrAuthenticationFailure)
		})
	}
}

func TestZeroizedKeyUnusable(t *testing.T) {
	key, _ := GenerateKey()
	key.Zeroize()

	_, err := Encrypt("x", key)
	assert.Error(t, err)

	_, err = ExportKey(key)
	assert.Error(t, err)
}
