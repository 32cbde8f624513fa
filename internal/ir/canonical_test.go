package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"b": 1, "a": "x", "c": true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1,"c":true}`, string(got))
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 is encoded as surrogates 0xD83D 0xDE00 in UTF-16 and so sorts
	// before U+E000, the reverse of UTF-8 byte order.
	got, err := MarshalCanonical(map[string]any{"\uE000": 2, "\U0001F600": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":1,\"\uE000\":2}", string(got))
}

func TestMarshalCanonical_NoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	composed, err := MarshalCanonical("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonical_LineSeparatorsNotEscaped(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))
}

func TestMarshalCanonical_EscapedBackslashPreserved(t *testing.T) {
	got, err := MarshalCanonical(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}

func TestMarshalCanonical_IntegralFloatAccepted(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"n": float64(42)})
	require.NoError(t, err)
	assert.Equal(t, `{"n":42}`, string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"null", nil},
		{"fractional float", 1.5},
		{"nested null", map[string]any{"a": []any{nil}}},
		{"unsupported", struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.value)
			assert.Error(t, err)
		})
	}
}

func TestScopeHash_DomainSeparated(t *testing.T) {
	plain := sha256.Sum256([]byte("ENTITY/container/1"))
	h := ScopeHash("ENTITY/container/1")
	assert.Len(t, h, 64)
	assert.NotEqual(t, hex.EncodeToString(plain[:]), h)
	assert.Equal(t, h, ScopeHash("ENTITY/container/1"))
	assert.NotEqual(t, h, ScopeHash("ENTITY/container/2"))
}
