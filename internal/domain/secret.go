package domain

// Store keys holding the credential material.
const (
	KeyEncryptionKey   = "encryptionKeyJwk"
	KeyEncryptedAPIKey = "encryptedApiKey"
)

// NonceSize is the length of the random nonce prefixed to every EncryptedBlob.
const NonceSize = 12

// EncryptedBlob is nonce || ciphertext+tag.
type EncryptedBlob []byte

type StoredEntry struct {
	Key   string
	Value []byte
}

type State int

const (
	StateUninitialized State = iota
	StateAwaitingOnboarding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAwaitingOnboarding:
		return "awaiting_onboarding"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}
