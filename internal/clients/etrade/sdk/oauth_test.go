package sdk

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"unreserved characters pass through", "abcXYZ019-._~", "abcXYZ019-._~"},
		{"space becomes %20 not +", "a b", "a%20b"},
		{"plus is encoded", "a+b", "a%2Bb"},
		{"ampersand and equals", "a&b=c", "a%26b%3Dc"},
		{"slash and colon", "https://x", "https%3A%2F%2Fx"},
		{"uppercase hex digits", "!", "%21"},
		{"utf-8 multibyte", "ü", "%C3%BC"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, percentEncode(tt.input))
		})
	}
}

// TestSignatureKnownVector verifies the signer against the widely published
// OAuth 1.0a HMAC-SHA1 reference example, which has a documented base string
// and signature.
func TestSignatureKnownVector(t *testing.T) {
	params := url.Values{}
	params.Set("status", "Hello Ladies + Gentlemen, a signed OAuth request!")
	params.Set("include_entities", "true")
	params.Set("oauth_consumer_key", "xvz1evFS4wEEPTGEFPHBog")
	params.Set("oauth_nonce", "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg")
	params.Set("oauth_signature_method", "HMAC-SHA1")
	params.Set("oauth_timestamp", "1318622958")
	params.Set("oauth_token", "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb")
	params.Set("oauth_version", "1.0")

	baseString := signatureBaseString("POST", "https://api.twitter.com/1.1/statuses/update.json", params)

	expectedBase := "POST&https%3A%2F%2Fapi.twitter.com%2F1.1%2Fstatuses%2Fupdate.json&" +
		"include_entities%3Dtrue%26" +
		"oauth_consumer_key%3Dxvz1evFS4wEEPTGEFPHBog%26" +
		"oauth_nonce%3DkYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg%26" +
		"oauth_signature_method%3DHMAC-SHA1%26" +
		"oauth_timestamp%3D1318622958%26" +
		"oauth_token%3D370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb%26" +
		"oauth_version%3D1.0%26" +
		"status%3DHello%2520Ladies%2520%252B%2520Gentlemen%252C%2520a%2520signed%2520OAuth%2520request%2521"
	require.Equal(t, expectedBase, baseString)

	key := signingKey("kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw", "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE")
	assert.Equal(t, "tnnArxj06cWHq44gCs1OSKk/jLY=", signHMACSHA1(key, baseString))
}

func TestSignatureBaseStringSortsParameters(t *testing.T) {
	params := url.Values{}
	params.Set("b", "2")
	params.Set("a", "1")
	params.Set("c", "3")

	got := signatureBaseString("get", "https://api.etrade.com/v1/accounts/list", params)

	assert.True(t, strings.HasPrefix(got, "GET&"), "method should be uppercased")
	assert.Contains(t, got, percentEncode("a=1&b=2&c=3"))
}

func TestSignatureBaseStringRepeatedKeysSortByValue(t *testing.T) {
	params := url.Values{}
	params.Add("k", "z")
	params.Add("k", "a")

	got := signatureBaseString("GET", "https://api.etrade.com/v1/x", params)
	assert.Contains(t, got, percentEncode("k=a&k=z"))
}

func TestSigningKeyWithEmptyTokenSecret(t *testing.T) {
	// Request token leg signs with consumer secret and an empty token secret
	assert.Equal(t, "secret&", signingKey("secret", ""))
}

func TestAuthorizationHeader(t *testing.T) {
	header := authorizationHeader(map[string]string{
		"oauth_consumer_key": "key",
		"oauth_signature":    "sig+/=",
		"oauth_callback":     "oob",
	})

	require.True(t, strings.HasPrefix(header, "OAuth "))
	// Keys are rendered in sorted order with percent-encoded values
	assert.Equal(t, `OAuth oauth_callback="oob", oauth_consumer_key="key", oauth_signature="sig%2B%2F%3D"`, header)
}

func TestNewNonceIsUniqueAndHex(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := newNonce()
		require.Len(t, n, 32)
		require.False(t, seen[n], "nonce repeated")
		seen[n] = true
	}
}
