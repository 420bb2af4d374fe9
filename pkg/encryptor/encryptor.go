package encryptor

import (
	"github.com/gtank/cryptopasta"
	"github.com/pkg/errors"
)

// Encryptor encrypts values before they hit durable storage.
// Secret is truncated/padded to 32 bytes.
type Encryptor struct {
	secret *[32]byte
}

func New(secretString string) *Encryptor {
	secret := &[32]byte{}
	copy(secret[:], secretString)
	return &Encryptor{secret: secret}
}

func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	encrypted, err := cryptopasta.Encrypt(plaintext, e.secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt value")
	}
	return encrypted, nil
}

func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	decrypted, err := cryptopasta.Decrypt(ciphertext, e.secret)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt value")
	}
	return decrypted, nil
}

func (e *Encryptor) EncryptString(plaintext string) ([]byte, error) {
	return e.Encrypt([]byte(plaintext))
}

func (e *Encryptor) DecryptString(ciphertext []byte) (string, error) {
	decrypted, err := e.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(decrypted), nil
}
