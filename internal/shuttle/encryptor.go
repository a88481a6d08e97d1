package shuttle

import "io"

// Encryptor encrypts file content on its way to an untrusted store and
// unlocks the key material needed to read it back.
type Encryptor interface {
	// Setup generates and stores a new key pair protected by the passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key with the passphrase and returns a
	// context that can decrypt previously encrypted content.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether key material is in place.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked key for decrypting content.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
