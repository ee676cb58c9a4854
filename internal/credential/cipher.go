// Package credential encrypts the API credential at rest with AES-256-GCM.
package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"voiceqa/internal/domain"
)

const keySize = 32

// Key is a 256-bit AES-GCM key. Its material only leaves the process through ExportKey.
type Key struct {
	material []byte
}

// jwk is the exported form of a Key, compatible with the JSON Web Key "oct" type.
type jwk struct {
	Kty    string   `json:"kty"`
	K      string   `json:"k"`
	Alg    string   `json:"alg"`
	Ext    bool     `json:"ext"`
	KeyOps []string `json:"key_ops"`
}

func GenerateKey() (*Key, error) {
	material := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, material); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{material: material}, nil
}

// Encrypt seals plaintext under key with a fresh random nonce and returns nonce || ciphertext.
func Encrypt(plaintext string, key *Key) (domain.EncryptedBlob, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, domain.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt opens a blob produced by Encrypt. Any integrity failure is reported as
// domain.ErrAuthenticationFailure.
func Decrypt(blob domain.EncryptedBlob, key *Key) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	if len(blob) < domain.NonceSize+gcm.Overhead() {
		return "", fmt.Errorf("blob too short: %w", domain.ErrAuthenticationFailure)
	}

	nonce, sealed := blob[:domain.NonceSize], blob[domain.NonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", domain.ErrAuthenticationFailure)
	}

	return string(plaintext), nil
}

func ExportKey(key *Key) ([]byte, error) {
	if key == nil || len(key.material) != keySize {
		return nil, fmt.Errorf("export key: invalid key")
	}
	return json.Marshal(jwk{
		Kty:    "oct",
		K:      base64.RawURLEncoding.EncodeToString(key.material),
		Alg:    "A256GCM",
		Ext:    true,
		KeyOps: []string{"encrypt", "decrypt"},
	})
}

// ImportKey parses the output of ExportKey. A malformed key makes the stored
// credential unrecoverable, so errors wrap domain.ErrAuthenticationFailure.
func ImportKey(data []byte) (*Key, error) {
	var k jwk
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("parse key: %w: %w", domain.ErrAuthenticationFailure, err)
	}
	if k.Kty != "oct" {
		return nil, fmt.Errorf("unsupported key type %q: %w", k.Kty, domain.ErrAuthenticationFailure)
	}
	if len(k.KeyOps) > 0 && (!slices.Contains(k.KeyOps, "encrypt") || !slices.Contains(k.KeyOps, "decrypt")) {
		return nil, fmt.Errorf("key not usable for encrypt and decrypt: %w", domain.ErrAuthenticationFailure)
	}

	material, err := base64.RawURLEncoding.DecodeString(k.K)
	if err != nil {
		return nil, fmt.Errorf("decode key material: %w: %w", domain.ErrAuthenticationFailure, err)
	}
	if len(material) != keySize {
		return nil, fmt.Errorf("key is %d bits, want 256: %w", len(material)*8, domain.ErrAuthenticationFailure)
	}

	return &Key{material: material}, nil
}

// Zeroize clears the key material. The key is unusable afterwards.
func (k *Key) Zeroize() {
	if k == nil {
		return
	}
	clear(k.material)
	k.material = nil
}

func newGCM(key *Key) (cipher.AEAD, error) {
	if key == nil || len(key.material) != keySize {
		return nil, fmt.Errorf("invalid key: %w", domain.ErrAuthenticationFailure)
	}

	block, err := aes.NewCipher(key.material)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
