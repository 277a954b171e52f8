package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// ErrDecryptionFailed is returned when a ciphertext cannot be authenticated
// and decrypted with the supplied key. Callers match it with errors.Is to
// distinguish a wrong-key condition from transport or storage failures.
var ErrDecryptionFailed = errors.New("decryption failed")

// gateway is the private implementation of [Gateway].
type gateway struct {
	// Argon2id tuning parameters. Stored in the struct so they can be
	// adjusted per deployment target (e.g. mobile vs. desktop).
	argonTime    uint32
	argonMemory  uint32
	argonThreads uint8
	argonKeyLen  uint32

	rsaBits int
}

// NewGateway constructs a [Gateway] with the Argon2id parameters recommended
// by OWASP (2024):
//   - time cost:   1 iteration
//   - memory cost: 64 MiB
//   - parallelism: 4 threads
//   - key length:  32 bytes (256 bits)
func NewGateway() Gateway {
	return &gateway{
		argonTime:    1,
		argonMemory:  64 * 1024, // 64 MiB
		argonThreads: 4,
		argonKeyLen:  32, // 256 bits
		rsaBits:      2048,
	}
}

// GenerateSalt implements [Gateway]. It reads 16 random bytes from the OS
// CSPRNG.
func (g *gateway) GenerateSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveVaultKey implements [Gateway]. It derives a 256-bit key from
// masterPassword and salt using Argon2id with the parameters stored in the
// receiver.
func (g *gateway) DeriveVaultKey(masterPassword string, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(masterPassword),
		salt,
		g.argonTime,
		g.argonMemory,
		g.argonThreads,
		g.argonKeyLen,
	)
}

// SymmetricEncrypt implements [Gateway]. The output blob layout is
// nonce (12 bytes) ‖ ciphertext, base64-encoded (standard encoding), so the
// decryption side can split the nonce back out.
func (g *gateway) SymmetricEncrypt(plaintext string, key []byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

// SymmetricDecrypt implements [Gateway]. Any failure to decode, split, or
// authenticate the blob is reported as ErrDecryptionFailed: from the caller's
// point of view they are all the same condition (the key cannot open this
// blob).
func (g *gateway) SymmetricDecrypt(ciphertext string, key []byte) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode base64: %w", ErrDecryptionFailed, err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(blob) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	nonce, sealed := blob[:nonceSize], blob[nonceSize:]

	// An auth-tag mismatch here almost always means the user entered the
	// wrong master password and derived a wrong key.
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

// GenerateKeyPair implements [Gateway].
func (g *gateway) GenerateKeyPair() (string, string, error) {
	key, err := rsa.GenerateKey(rand.Reader, g.rsaBits)
	if err != nil {
		return "", "", fmt.Errorf("generate rsa key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("marshal public key: %w", err)
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("marshal private key: %w", err)
	}

	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	return string(pubPEM), string(privPEM), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
