package crypto

// Gateway owns every cryptographic operation the vault engine needs. It knows
// nothing about the network, the database, or vault semantics.
//
// Key scheme:
//
//	salt = GenerateSalt()                       (stored server-side, not secret)
//	key  = DeriveVaultKey(masterPassword, salt) (exists only in client memory)
//	blob = SymmetricEncrypt(snapshot, key)      (what the server stores)
type Gateway interface {
	// GenerateSalt returns a random 16-byte salt for key derivation.
	GenerateSalt() ([]byte, error)

	// DeriveVaultKey derives the 256-bit vault encryption key from the
	// master password and salt via Argon2id. The result never leaves the
	// client.
	DeriveVaultKey(masterPassword string, salt []byte) []byte

	// SymmetricEncrypt encrypts plaintext with key using AES-256-GCM and
	// returns base64(nonce || ciphertext). An empty plaintext passes through
	// unchanged: there is nothing worth encrypting in an empty field.
	SymmetricEncrypt(plaintext string, key []byte) (string, error)

	// SymmetricDecrypt reverses SymmetricEncrypt. An empty input passes
	// through unchanged. A wrong key, truncated blob, or corrupted
	// ciphertext yields an error wrapping ErrDecryptionFailed.
	SymmetricDecrypt(ciphertext string, key []byte) (string, error)

	// GenerateKeyPair creates a fresh RSA-2048 keypair and returns both
	// halves PEM-encoded (PKIX public key, PKCS#8 private key). Used for the
	// vault's primary encryption key that the server encrypts per-record
	// data against.
	GenerateKeyPair() (publicKey, privateKey string, err error)
}
