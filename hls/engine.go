package hls

import (
	"bufio"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"

	"github.com/streamtree/hlstree/logging"
)

// Engine is the consumer-facing entry point: it opens a manifest tree and
// exposes the operations a player-side consumer drives. It is a
// thin, named wrapper over *Tree so the package's public surface reads
// as a coherent API rather than a bag of loose functions.
type Engine struct {
	*Tree
}

// OpenEngine opens url with a default HTTP fetcher and AES decrypter,
// equivalent to OpenEngineWith(ctx, url, NewDefaultFetcher(cfg),
// NewDefaultDecrypter(licenseKey), cfg).
func OpenEngine(ctx context.Context, url, licenseKey string, cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return OpenEngineWith(ctx, url, NewDefaultFetcher(cfg), NewDefaultDecrypter(licenseKey), cfg)
}

// OpenEngineWith opens url using caller-supplied Fetcher/Decrypter
// collaborators.
func OpenEngineWith(ctx context.Context, url string, fetcher Fetcher, decrypter Decrypter, cfg *Config) (*Engine, error) {
	tree, err := Open(ctx, url, fetcher, decrypter, cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{Tree: tree}, nil
}

// DefaultFetcher is the net/http-backed Fetcher implementation: context
// aware, header-driven, bounded by the Config's timeouts.
type DefaultFetcher struct {
	client *http.Client
	cfg    *Config
}

// NewDefaultFetcher builds a DefaultFetcher honoring cfg's HTTP timeouts
// and redirect limit.
func NewDefaultFetcher(cfg *Config) *DefaultFetcher {
	client := &http.Client{
		Timeout: cfg.HTTP.ConnectionTimeout + cfg.HTTP.ReadTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.HTTP.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", cfg.HTTP.MaxRedirects)
			}
			return nil
		},
	}
	return &DefaultFetcher{client: client, cfg: cfg}
}

// Fetch implements Fetcher.
func (f *DefaultFetcher) Fetch(ctx context.Context, target string, headers map[string]string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	for k, v := range f.cfg.GetHTTPHeaders() {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, target)
	}

	data, err := io.ReadAll(bufio.NewReader(resp.Body))
	if err != nil {
		return nil, "", err
	}

	effective := target
	if resp.Request != nil && resp.Request.URL != nil {
		effective = resp.Request.URL.String()
	}
	return data, effective, nil
}

// DefaultDecrypter implements Decrypter using AES-128-CBC from
// crypto/aes and crypto/cipher.
type DefaultDecrypter struct {
	licenseKey string
}

// NewDefaultDecrypter builds a Decrypter around a pipe-delimited license
// key string.
func NewDefaultDecrypter(licenseKey string) *DefaultDecrypter {
	return &DefaultDecrypter{licenseKey: licenseKey}
}

func (d *DefaultDecrypter) LicenseKey() string { return d.licenseKey }

func (d *DefaultDecrypter) RenewLicense(ctx context.Context, param string) bool {
	logging.WithFields(logging.Fields{"component": "hls.DefaultDecrypter"}).
		Debug("license renewal not implemented", logging.Fields{"param": param})
	return false
}

func (d *DefaultDecrypter) IVFromSequence(segNum uint64) [16]byte {
	var iv [16]byte
	binary.BigEndian.PutUint64(iv[8:], segNum)
	return iv
}

func (d *DefaultDecrypter) Decrypt(key, iv, src []byte, isLastChunk bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(src)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(src))
	}

	dst := make([]byte, len(src))
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(dst, src)

	if isLastChunk && len(dst) > 0 {
		dst = pkcs7Unpad(dst)
	}
	return dst, nil
}

func pkcs7Unpad(data []byte) []byte {
	n := len(data)
	if n == 0 {
		return data
	}
	pad := int(data[n-1])
	if pad <= 0 || pad > aes.BlockSize || pad > n {
		return data
	}
	for i := n - pad; i < n; i++ {
		if data[i] != byte(pad) {
			return data
		}
	}
	return data[:n-pad]
}
