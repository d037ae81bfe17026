package obs

import (
	"crypto/sha256"
	"encoding/base64"
)

// authResponse computes the two-stage challenge response:
//
//	secret   = Base64(SHA256(password + salt))
//	response = Base64(SHA256(secret + challenge))
//
// The intermediate secret is the base64 string, not the raw digest.
func authResponse(password, salt, challenge string) string {
	secret := hashB64(password + salt)
	return hashB64(secret + challenge)
}

func hashB64(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.StdEncoding.EncodeToString(sum[:])
}
