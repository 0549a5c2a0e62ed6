package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBufferKind(t *testing.T) {
	cases := []struct {
		in   string
		want BufferKind
	}{
		{"", NoBuffer},
		{"none", NoBuffer},
		{"exist-set", NativeExistSet},
		{"SET", LanguageNativeSet},
		{" trie ", PrefixTree},
		{"shared-cache", SharedProcessCache},
		{"0", NativeExistSet},
		{"1", LanguageNativeSet},
		{"2", PrefixTree},
		{"3", SharedProcessCache},
		{"4", NoBuffer},
		{"-1", NoBuffer},
	}
	for _, tc := range cases {
		got, err := ParseBufferKind(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseBufferKind("bloom")
	assert.Error(t, err)
}

func TestBufferKindString(t *testing.T) {
	assert.Equal(t, "trie", PrefixTree.String())
	assert.Equal(t, "BufferKind(42)", BufferKind(42).String())
}

func TestResponses(t *testing.T) {
	assert.Equal(t, "STRING EXISTS", ExistenceResponse(true))
	assert.Equal(t, "STRING NOT FOUND", ExistenceResponse(false))
	assert.Equal(t, "ERROR: boom 7", ErrorResponse("boom %d", 7))
}
