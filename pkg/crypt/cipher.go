package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"

	"github.com/ssargent/nucleon/pkg/errs"
)

// decryptFailed is the message surfaced for every decryption failure. A
// wrong password and a corrupted ciphertext are indistinguishable.
const decryptFailed = "decryption failed, likely wrong password"

// Cipher encrypts and decrypts with AES-256-CBC and password-derived keys
type Cipher struct{}

// NewCipher creates a new cipher
func NewCipher() *Cipher {
	return &Cipher{}
}

// Encrypt pads data with PKCS#7 and encrypts it in CBC mode.
func (c *Cipher) Encrypt(data []byte, km KeyMaterial) ([]byte, error) {
	block, err := aes.NewCipher(km.Key)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrValidation, err, "create AES cipher")
	}
	if len(km.IV) != block.BlockSize() {
		return nil, errs.Newf(errs.ErrValidation, "IV must be %d bytes, got %d", block.BlockSize(), len(km.IV))
	}

	padded := pad(data, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, km.IV).CryptBlocks(out, padded)

	return out, nil
}

// Decrypt decrypts CBC ciphertext, strips PKCS#7 padding and truncates the
// result to originalLength. Any failure is reported as a crypto error.
func (c *Cipher) Decrypt(data []byte, km KeyMaterial, originalLength int) ([]byte, error) {
	block, err := aes.NewCipher(km.Key)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrValidation, err, "create AES cipher")
	}
	if len(km.IV) != block.BlockSize() {
		return nil, errs.Newf(errs.ErrValidation, "IV must be %d bytes, got %d", block.BlockSize(), len(km.IV))
	}
	if len(data) == 0 || len(data)%block.BlockSize() != 0 {
		return nil, errs.Newf(errs.ErrCrypto, "%s: ciphertext length %d is not a positive multiple of %d",
			decryptFailed, len(data), block.BlockSize())
	}

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, km.IV).CryptBlocks(plain, data)

	plain, err = unpad(plain, block.BlockSize())
	if err != nil {
		return nil, errs.Wrapf(errs.ErrCrypto, err, decryptFailed)
	}

	if originalLength >= 0 && originalLength < len(plain) {
		plain = plain[:originalLength]
	}
	return plain, nil
}

// EncryptWithPassword derives fresh key material under a random salt and
// encrypts data. The salt is returned for the metadata record.
func (c *Cipher) EncryptWithPassword(data []byte, password string) ([]byte, []byte, error) {
	km, salt, err := DeriveKey(password, nil)
	if err != nil {
		return nil, nil, err
	}
	out, err := c.Encrypt(data, km)
	if err != nil {
		return nil, nil, err
	}
	return out, salt, nil
}

// DecryptWithPassword re-derives key material from password and the stored
// salt and decrypts data.
func (c *Cipher) DecryptWithPassword(data []byte, password string, salt []byte, originalLength int) ([]byte, error) {
	km, _, err := DeriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	return c.Decrypt(data, km, originalLength)
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errs.Newf(errs.ErrCrypto, "empty plaintext")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errs.Newf(errs.ErrCrypto, "invalid padding length %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errs.Newf(errs.ErrCrypto, "inconsistent padding bytes")
		}
	}
	return data[:len(data)-n], nil
}
