package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// GenerateSessionToken returns a random base64url token (32 bytes, 256 bits
// of entropy). The raw token is handed to the caller exactly once; only a
// digest is ever stored.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSessionToken returns SHA-256(token:secret) as hex for DB storage.
func HashSessionToken(token, secret string) string {
	sum := sha256.Sum256([]byte(token + ":" + secret))
	return hex.EncodeToString(sum[:])
}

// generatePasscode returns a numeric code of the given length from a
// cryptographically secure source. A secure random value is reduced modulo
// the code space; with 63 bits of input the bias is negligible for every
// supported length.
func generatePasscode(length int) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate passcode: %w", err)
	}
	min := pow10(length - 1)
	span := pow10(length) - min
	n := int64(binary.BigEndian.Uint64(buf[:])>>1)%span + min
	return fmt.Sprintf("%0*d", length, n), nil
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// hashPasscodeHex returns SHA-256(identifier:code:salt) as hex for DB storage.
func hashPasscodeHex(identifier, code, salt string) string {
	sum := sha256.Sum256([]byte(identifier + ":" + code + ":" + salt))
	return hex.EncodeToString(sum[:])
}
