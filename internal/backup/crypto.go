package backup

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

// Encrypted snapshot layout: magic | salt | nonce | AES-256-GCM ciphertext.
// The magic doubles as additional authenticated data.
const (
	magic     = "BSKT1"
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
	argonTime = 3
	argonMem  = 64 * 1024
	argonPar  = 4
)

var ErrNotBackup = errors.New("not a basket backup")

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMem, argonPar, keySize)
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext under a key derived from the passphrase with a
// fresh random salt.
func Seal(plaintext []byte, passphrase string) ([]byte, error) {
	header := make([]byte, len(magic)+saltSize+nonceSize)
	copy(header, magic)
	if _, err := io.ReadFull(rand.Reader, header[len(magic):]); err != nil {
		return nil, fmt.Errorf("generate salt and nonce: %w", err)
	}
	salt := header[len(magic) : len(magic)+saltSize]
	nonce := header[len(magic)+saltSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(header, nonce, plaintext, []byte(magic)), nil
}

// Open reverses Seal. A wrong passphrase or tampered data fails
// authentication.
func Open(data []byte, passphrase string) ([]byte, error) {
	if len(data) < len(magic)+saltSize+nonceSize || !bytes.HasPrefix(data, []byte(magic)) {
		return nil, ErrNotBackup
	}
	rest := data[len(magic):]
	salt, nonce, ciphertext := rest[:saltSize], rest[saltSize:saltSize+nonceSize], rest[saltSize+nonceSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(magic))
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func EncryptFile(srcPath, dstPath, passphrase string) error {
	plaintext, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	sealed, err := Seal(plaintext, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, sealed, 0600); err != nil {
		return fmt.Errorf("write encrypted file: %w", err)
	}
	return nil
}

func DecryptFile(srcPath, dstPath, passphrase string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read encrypted file: %w", err)
	}
	plaintext, err := Open(data, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		return fmt.Errorf("write decrypted file: %w", err)
	}
	return nil
}
