package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignResource binds parts (e.g. photo id and object key) to the server secret.
func SignResource(secret string, parts ...string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	payload := strings.Join(parts, ":")
	mac.Write([]byte(payload))
	sum := mac.Sum(nil)
	return []byte(base64.RawURLEncoding.EncodeToString(sum))
}

func VerifyResource(secret string, signature string, parts ...string) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(signature), SignResource(secret, parts...))
}
