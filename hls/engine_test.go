package hls

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEngineEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte(testMediaPlaylistVOD))
	}))
	defer server.Close()

	engine, err := OpenEngine(context.Background(), server.URL, "", DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, engine)
	assert.Len(t, engine.Periods(), 1)
	assert.False(t, engine.IsLive())
}

func TestOpenEngineFetchFailure(t *testing.T) {
	_, err := OpenEngine(context.Background(), "http://127.0.0.1:0/nope.m3u8", "", DefaultConfig())
	require.Error(t, err)
}

func TestDefaultFetcherHonorsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hlstree/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "v", r.Header.Get("X-Custom"))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	fetcher := NewDefaultFetcher(cfg)
	data, effective, err := fetcher.Fetch(context.Background(), server.URL, map[string]string{"X-Custom": "v"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.NotEmpty(t, effective)
}

func TestDefaultFetcherNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewDefaultFetcher(DefaultConfig())
	_, _, err := fetcher.Fetch(context.Background(), server.URL, nil)
	require.Error(t, err)
}

func TestDefaultDecrypterIVFromSequence(t *testing.T) {
	d := NewDefaultDecrypter("")
	iv := d.IVFromSequence(42)
	assert.Equal(t, byte(42), iv[15])
	for i := 0; i < 8; i++ {
		assert.Equal(t, byte(0), iv[i])
	}
}

func TestDefaultDecrypterRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	plaintext := []byte("this is exactly 32 bytes long!!!")
	require.Len(t, plaintext, 32)

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	iv := make([]byte, 16)
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	d := NewDefaultDecrypter("")
	out, err := d.Decrypt(key, iv, ciphertext, true)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestDefaultDecrypterRejectsNonBlockAlignedInput(t *testing.T) {
	d := NewDefaultDecrypter("")
	_, err := d.Decrypt([]byte("0123456789abcdef"), make([]byte, 16), []byte("short"), true)
	require.Error(t, err)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+pad)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(pad)
	}
	return padded
}

func TestPkcs7Unpad(t *testing.T) {
	data := append([]byte("hello"), 3, 3, 3)
	assert.Equal(t, []byte("hello"), pkcs7Unpad(data))
}

func TestPkcs7UnpadRejectsInvalidPadding(t *testing.T) {
	data := []byte("hello!!")
	assert.Equal(t, data, pkcs7Unpad(data))
}
