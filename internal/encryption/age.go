package encryption

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"shuttle-go/internal/config"
	"shuttle-go/internal/shuttle"
)

// AgeEncryptor implements shuttle.Encryptor on filippo.io/age X25519 keys.
// The recipient (public key) lives on disk in plaintext so the transfer loop
// can encrypt file after file without ever prompting; the identity (private
// key) is sealed under the user's passphrase and only read by Unlock.
type AgeEncryptor struct {
	publicKeyPath  string
	privateKeyPath string

	// recipient caches the parsed public key. A run encrypts every matched
	// file through the same encryptor, so the key file is read once.
	recipient age.Recipient
}

var _ shuttle.Encryptor = (*AgeEncryptor)(nil)

// NewAgeEncryptor builds an encryptor over the configured key pair paths.
func NewAgeEncryptor(cfg config.EncryptionConfig) *AgeEncryptor {
	return &AgeEncryptor{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

// Setup generates a fresh X25519 key pair and writes both halves: the
// identity sealed under the passphrase, the recipient in plaintext.
// Existing key files are overwritten.
func (e *AgeEncryptor) Setup(passphrase string) error {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating identity: %w", err)
	}

	sealed, err := sealIdentity(identity, passphrase)
	if err != nil {
		return fmt.Errorf("sealing identity: %w", err)
	}
	if err := writeKeyFile(e.privateKeyPath, sealed, 0600); err != nil {
		return fmt.Errorf("storing private key: %w", err)
	}

	recipient := identity.Recipient()
	if err := writeKeyFile(e.publicKeyPath, []byte(recipient.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("storing public key: %w", err)
	}

	e.recipient = recipient
	return nil
}

// Encrypt streams plaintext from r into an age stanza written to w,
// addressed to the stored recipient.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if e.recipient == nil {
		recipient, err := readRecipientFile(e.publicKeyPath)
		if err != nil {
			return fmt.Errorf("loading public key: %w", err)
		}
		e.recipient = recipient
	}

	cw, err := age.Encrypt(w, e.recipient)
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.Copy(cw, r); err != nil {
		return fmt.Errorf("encrypting content: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("finishing encryption: %w", err)
	}
	return nil
}

// Unlock opens the sealed private key with the passphrase. The returned
// context carries every identity found in the file, so content written under
// an older key still decrypts after a key rotation.
func (e *AgeEncryptor) Unlock(passphrase string) (shuttle.DecryptionContext, error) {
	f, err := os.Open(e.privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("opening private key: %w", err)
	}
	defer f.Close()

	guard, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("deriving passphrase key: %w", err)
	}
	plain, err := age.Decrypt(f, guard)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}

	identities, err := age.ParseIdentities(plain)
	if err != nil {
		return nil, fmt.Errorf("parsing identities: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("private key file %s holds no identities", filepath.Base(e.privateKeyPath))
	}
	return &AgeDecryptionContext{identities: identities}, nil
}

// IsConfigured reports whether both key files are present on disk.
func (e *AgeEncryptor) IsConfigured() bool {
	for _, p := range []string{e.publicKeyPath, e.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// sealIdentity encrypts the identity under a passphrase-derived scrypt
// recipient and returns the finished key file content.
func sealIdentity(identity *age.X25519Identity, passphrase string) ([]byte, error) {
	guard, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("deriving passphrase key: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, guard)
	if err != nil {
		return nil, fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return nil, fmt.Errorf("writing identity: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finishing encryption: %w", err)
	}
	return buf.Bytes(), nil
}

// writeKeyFile writes a key with the given permissions, creating the key
// directory on first use.
func writeKeyFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readRecipientFile parses the plaintext public key file. Setup writes
// exactly one recipient, so anything else means the file was tampered with.
func readRecipientFile(path string) (age.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recipients, err := age.ParseRecipients(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if len(recipients) != 1 {
		return nil, fmt.Errorf("%s holds %d recipients, want exactly one", filepath.Base(path), len(recipients))
	}
	return recipients[0], nil
}

// AgeDecryptionContext is an unlocked set of age identities.
type AgeDecryptionContext struct {
	identities []age.Identity
}

var _ shuttle.DecryptionContext = (*AgeDecryptionContext)(nil)

// Decrypt streams ciphertext from r through any matching identity into w.
func (c *AgeDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	plain, err := age.Decrypt(r, c.identities...)
	if err != nil {
		return fmt.Errorf("opening encrypted content: %w", err)
	}
	if _, err := io.Copy(w, plain); err != nil {
		return fmt.Errorf("decrypting content: %w", err)
	}
	return nil
}
