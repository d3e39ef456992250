package application

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCodes_ShapeAndAlphabet(t *testing.T) {
	g := RandomCodes{}
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code, err := g.Generate()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		for _, c := range code {
			require.Truef(t, strings.ContainsRune(CodeAlphabet, c), "unexpected char %q in %s", c, code)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 495, "codes should practically never repeat")
}

func TestRandomCodes_AlphabetHasNoAmbiguousChars(t *testing.T) {
	assert.Len(t, CodeAlphabet, 32)
	for _, c := range "IO01" {
		assert.NotContains(t, CodeAlphabet, string(c))
	}
}

func TestRandomCodes_MapsBytesModuloAlphabet(t *testing.T) {
	g := RandomCodes{Reader: bytes.NewReader([]byte{0, 1, 31, 32, 33, 255, 8, 24})}
	code, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, "AB9AB9J2", code)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("entropy gone") }

func TestRandomCodes_PropagatesReaderError(t *testing.T) {
	_, err := RandomCodes{Reader: errReader{}}.Generate()
	assert.ErrorContains(t, err, "entropy gone")
}
