package hls

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexRequiresHeader(t *testing.T) {
	t.Run("rejects missing EXTM3U", func(t *testing.T) {
		_, err := Lex(strings.NewReader(testMalformedPlaylistNoHeader))
		require.Error(t, err)
		assert.True(t, IsMalformedManifest(err))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := Lex(strings.NewReader(""))
		require.Error(t, err)
	})

	t.Run("tolerates leading blank lines", func(t *testing.T) {
		lines, err := Lex(strings.NewReader("\n\n" + testMediaPlaylistVOD))
		require.NoError(t, err)
		assert.NotEmpty(t, lines)
	})
}

func TestLexTagAndURILines(t *testing.T) {
	lines, err := Lex(strings.NewReader(testMediaPlaylistVOD))
	require.NoError(t, err)

	var tagCount, uriCount int
	for _, l := range lines {
		if l.IsTag {
			tagCount++
			assert.True(t, strings.HasPrefix(l.Raw, "#"))
		}
		if l.IsURI {
			uriCount++
			assert.False(t, strings.HasPrefix(l.Raw, "#"))
		}
	}
	assert.Equal(t, 3, uriCount, "three segment URI lines expected")
	assert.True(t, tagCount > 0)
}

func TestLexSplitsTagNameAndValue(t *testing.T) {
	lines, err := Lex(strings.NewReader(testMediaPlaylistVOD))
	require.NoError(t, err)

	found := false
	for _, l := range lines {
		if l.TagName == "#EXT-X-TARGETDURATION" {
			found = true
			assert.Equal(t, "10", l.TagValue)
		}
	}
	assert.True(t, found, "expected to find EXT-X-TARGETDURATION tag")
}

func TestLexTagWithoutColon(t *testing.T) {
	lines, err := Lex(strings.NewReader("#EXTM3U\n#EXT-X-ENDLIST\n"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "#EXT-X-ENDLIST", lines[0].TagName)
	assert.Equal(t, "", lines[0].TagValue)
}

func TestLexLineNumbering(t *testing.T) {
	lines, err := Lex(strings.NewReader(testMediaPlaylistVOD))
	require.NoError(t, err)
	for i := 1; i < len(lines); i++ {
		assert.True(t, lines[i].Number > lines[i-1].Number)
	}
}
