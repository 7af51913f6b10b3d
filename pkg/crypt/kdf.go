// Package crypt provides the password-based encryption stage of the
// nucleon pipeline: PBKDF2-HMAC-SHA256 key derivation and AES-256-CBC with
// PKCS#7 padding.
//
// The initialization vector is derived from the password and salt together
// with the key. A fresh random salt per encryption keeps key material unique
// per message; reusing a salt with the same password reuses the IV.
package crypt

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/ssargent/nucleon/pkg/errs"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the length of the random PBKDF2 salt.
	SaltSize = 16
	// KeySize is the AES-256 key length.
	KeySize = 32
	// IVSize is the CBC initialization vector length (one AES block).
	IVSize = 16
	// Iterations is the PBKDF2 iteration count.
	Iterations = 100000
)

// KeyMaterial is the cipher key and IV derived from a password and salt
type KeyMaterial struct {
	Key []byte
	IV  []byte
}

// DeriveKey derives key material from password and salt. When salt is nil a
// fresh random salt is generated. The salt actually used is returned so it
// can be stored alongside the ciphertext.
func DeriveKey(password string, salt []byte) (KeyMaterial, []byte, error) {
	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return KeyMaterial{}, nil, errs.Wrapf(errs.ErrCrypto, err, "generate salt")
		}
	} else if len(salt) != SaltSize {
		return KeyMaterial{}, nil, errs.Newf(errs.ErrValidation, "salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	material := pbkdf2.Key([]byte(password), salt, Iterations, KeySize+IVSize, sha256.New)

	return KeyMaterial{
		Key: material[:KeySize],
		IV:  material[KeySize : KeySize+IVSize],
	}, salt, nil
}
