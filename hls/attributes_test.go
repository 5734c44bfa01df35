package hls

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAttributesSimple(t *testing.T) {
	attribs := ParseAttributes("BANDWIDTH=1280000,CODECS=\"avc1.42e00a,mp4a.40.2\"")
	assert.Equal(t, "1280000", attribs["BANDWIDTH"])
	assert.Equal(t, "avc1.42e00a,mp4a.40.2", attribs["CODECS"])
}

func TestParseAttributesCommaInsideQuotes(t *testing.T) {
	attribs := ParseAttributes(`GROUP-ID="aud1",NAME="English, US",LANGUAGE="en"`)
	assert.Equal(t, "aud1", attribs["GROUP-ID"])
	assert.Equal(t, "English, US", attribs["NAME"])
	assert.Equal(t, "en", attribs["LANGUAGE"])
}

func TestParseAttributesUnquotedValues(t *testing.T) {
	attribs := ParseAttributes("TYPE=AUDIO,DEFAULT=YES,AUTOSELECT=YES")
	assert.Equal(t, "AUDIO", attribs["TYPE"])
	assert.Equal(t, "YES", attribs["DEFAULT"])
	assert.Equal(t, "YES", attribs["AUTOSELECT"])
}

func TestParseAttributesEmpty(t *testing.T) {
	attribs := ParseAttributes("")
	assert.Empty(t, attribs)
}

func TestParseAttributesKeyFormatURI(t *testing.T) {
	attribs := ParseAttributes(`METHOD=SAMPLE-AES-CTR,KEYFORMAT="urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed",KEYID=0x0102030405060708090a0b0c0d0e0f10,URI="data:text/plain;base64,AAAA"`)
	assert.Equal(t, "SAMPLE-AES-CTR", attribs["METHOD"])
	assert.Equal(t, "urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed", attribs["KEYFORMAT"])
	assert.Equal(t, "0x0102030405060708090a0b0c0d0e0f10", attribs["KEYID"])
	assert.Equal(t, "data:text/plain;base64,AAAA", attribs["URI"])
}

func TestParseResolution(t *testing.T) {
	w, h := ParseResolution("1920x1080")
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
}

func TestParseResolutionMissingSeparator(t *testing.T) {
	w, h := ParseResolution("garbage")
	assert.Equal(t, 0, w)
	assert.Equal(t, 0, h)
}

func TestParseRangeValuesWithOffset(t *testing.T) {
	length, offset, hasOffset := ParseRangeValues("500000@1000")
	assert.Equal(t, uint64(500000), length)
	assert.Equal(t, uint64(1000), offset)
	assert.True(t, hasOffset)
}

func TestParseRangeValuesWithoutOffset(t *testing.T) {
	length, offset, hasOffset := ParseRangeValues("500000")
	assert.Equal(t, uint64(500000), length)
	assert.Equal(t, uint64(0), offset)
	assert.False(t, hasOffset)
}
