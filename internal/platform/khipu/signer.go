package khipu

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StringToSign builds METHOD&TARGET&PARAMS for the given scheme.
func StringToSign(scheme SigningScheme, method, target string, params Params) string {
	query := scheme.Canonical(params)
	if scheme.EncodeOuter {
		target = EscapeComponent(target)
		query = EscapeComponent(query)
	}
	return strings.Join([]string{strings.ToUpper(method), target, query}, "&")
}

// Sign returns the lowercase hex HMAC-SHA256 of the string-to-sign under secret.
func Sign(scheme SigningScheme, method, target string, params Params, secret string) string {
	return calculateHMAC(StringToSign(scheme, method, target, params), secret)
}

// calculateHMAC computes HMAC-SHA256 of message.
func calculateHMAC(message, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}
