package encryption

import (
	"bytes"
	"fmt"
	"io"

	"shuttle-go/internal/shuttle"
)

// stubHeader marks content written by the StubEncryptor so decryption can
// refuse anything else.
var stubHeader = []byte("SHSTUB1\n")

// stubMask is XORed over the payload. XOR is its own inverse, so the same
// pass encrypts and decrypts.
const stubMask = 0x5a

// StubEncryptor is a keyless stand-in for the age encryptor, selected with
// encryption type "test". Output is a fixed header plus an XOR-masked
// payload, so sealed content never shares a byte with its plaintext yet
// reverses without key material.
type StubEncryptor struct {
	setups int
}

var _ shuttle.Encryptor = (*StubEncryptor)(nil)

// NewStubEncryptor returns a ready StubEncryptor; no key material involved.
func NewStubEncryptor() *StubEncryptor {
	return &StubEncryptor{}
}

// Setup only records that it ran. There are no keys to generate.
func (e *StubEncryptor) Setup(passphrase string) error {
	e.setups++
	return nil
}

func (e *StubEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(stubHeader); err != nil {
		return fmt.Errorf("writing stub header: %w", err)
	}
	return maskCopy(w, r)
}

func (e *StubEncryptor) Unlock(passphrase string) (shuttle.DecryptionContext, error) {
	return &StubDecryptionContext{}, nil
}

// IsConfigured is always true; the stub needs no setup.
func (e *StubEncryptor) IsConfigured() bool {
	return true
}

// StubDecryptionContext reverses StubEncryptor output.
type StubDecryptionContext struct{}

var _ shuttle.DecryptionContext = (*StubDecryptionContext)(nil)

func (c *StubDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	head := make([]byte, len(stubHeader))
	if _, err := io.ReadFull(r, head); err != nil {
		return fmt.Errorf("reading stub header: %w", err)
	}
	if !bytes.Equal(head, stubHeader) {
		return fmt.Errorf("content was not produced by the stub encryptor")
	}
	return maskCopy(w, r)
}

// maskCopy copies r to w, XORing every byte with stubMask.
func maskCopy(w io.Writer, r io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for i := range chunk {
				chunk[i] ^= stubMask
			}
			if _, werr := w.Write(chunk); werr != nil {
				return fmt.Errorf("writing masked content: %w", werr)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading content: %w", err)
		}
	}
}
