package payline

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// PayLine signs requests with SHA256 over a colon-joined base string that
// embeds a shared secret. Secret1 signs outgoing checkout requests, Secret2
// signs the server-to-server result callback.

// BuildCheckoutSignatureBase builds the base for the checkout redirect:
// MerchantID:Amount:OrderID:Secret1[:custom params]
func BuildCheckoutSignatureBase(merchantID, amount, orderID, secret1 string, custom map[string]string) string {
	parts := []string{merchantID, amount, orderID, secret1}
	parts = append(parts, sortedCustomPairs(custom)...)
	return strings.Join(parts, ":")
}

// BuildResultSignatureBase builds the base for the result callback:
// Amount:OrderID:Secret2[:custom params]
func BuildResultSignatureBase(amount, orderID, secret2 string, custom map[string]string) string {
	parts := []string{amount, orderID, secret2}
	parts = append(parts, sortedCustomPairs(custom)...)
	return strings.Join(parts, ":")
}

// Sign hashes a signature base with SHA256.
func Sign(base string) string {
	h := sha256.Sum256([]byte(base))
	return hex.EncodeToString(h[:])
}

// VerifySignature compares two hex signatures, case-insensitive, in constant
// time.
func VerifySignature(expectedHex, receivedHex string) bool {
	expected := strings.ToLower(strings.TrimSpace(expectedHex))
	received := strings.ToLower(strings.TrimSpace(receivedHex))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

// sortedCustomPairs returns "key=value" pairs for every pl_ parameter, sorted
// case-insensitively by key. Key casing is part of the signature base, so
// original casing is preserved in the output.
func sortedCustomPairs(custom map[string]string) []string {
	if len(custom) == 0 {
		return nil
	}

	keys := make([]string, 0, len(custom))
	for k := range custom {
		if strings.HasPrefix(strings.ToLower(k), "pl_") {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, url.QueryEscape(custom[key])))
	}
	return pairs
}
