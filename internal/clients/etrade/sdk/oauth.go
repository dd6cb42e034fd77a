package sdk

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// OAuth 1.0a request signing (HMAC-SHA1), as required by the E*TRADE API.
// The signature base string and parameter encoding follow RFC 5849 section 3.4.

// percentEncode escapes a string per RFC 3986 section 2.1. Unlike
// url.QueryEscape it encodes spaces as %20 and leaves '~' alone, both of
// which matter for signature construction.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

// newNonce returns 32 hex characters of randomness for oauth_nonce.
func newNonce() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// signatureBaseString builds the OAuth signature base string from the HTTP
// method, the request URL stripped of its query, and every request parameter
// (query string and oauth_* protocol parameters combined).
func signatureBaseString(method, baseURL string, params url.Values) string {
	type pair struct {
		key, value string
	}

	pairs := make([]pair, 0, len(params))
	for key, vals := range params {
		for _, v := range vals {
			pairs = append(pairs, pair{key: percentEncode(key), value: percentEncode(v)})
		}
	}

	// Sort by encoded key, then by encoded value for repeated keys
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	encoded := make([]string, len(pairs))
	for i, p := range pairs {
		encoded[i] = p.key + "=" + p.value
	}

	return strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(encoded, "&"))
}

// signingKey derives the HMAC key from the consumer secret and the token
// secret. The token secret is empty on the request token leg.
func signingKey(consumerSecret, tokenSecret string) string {
	return percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)
}

// signHMACSHA1 computes the base64-encoded HMAC-SHA1 signature of the base string.
func signHMACSHA1(key, baseString string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(baseString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// authorizationHeader renders oauth parameters, including the computed
// signature, as an OAuth Authorization header value.
func authorizationHeader(oauthParams map[string]string) string {
	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, percentEncode(k)+`="`+percentEncode(oauthParams[k])+`"`)
	}
	return "OAuth " + strings.Join(parts, ", ")
}
