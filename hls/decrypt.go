package hls

import (
	"context"
	"strings"

	"github.com/streamtree/hlstree/logging"
)

// Fetcher abstracts HTTP retrieval of manifests and key-resolution
// requests. The default implementation wraps net/http with timeouts,
// redirect limits, and custom headers from Config.
type Fetcher interface {
	// Fetch retrieves url and returns its body along with the effective
	// URL after redirects (used to resolve relative child-playlist URIs).
	Fetch(ctx context.Context, url string, headers map[string]string) (data []byte, effectiveURL string, err error)
}

// Decrypter abstracts the AES-128 key-resolution and sample-decryption
// collaborator.
type Decrypter interface {
	// LicenseKey returns the pipe-delimited license-key string: URL
	// query params | extra headers | ... | renewal param.
	LicenseKey() string
	// RenewLicense attempts to refresh the license using param (the 5th
	// '|'-delimited field of LicenseKey) and reports whether the caller
	// should retry key resolution.
	RenewLicense(ctx context.Context, param string) bool
	// IVFromSequence derives a deterministic IV from a segment number
	// when no explicit IV was signaled on the EXT-X-KEY tag.
	IVFromSequence(segNum uint64) [16]byte
	// Decrypt decrypts src (AES-128, CBC, PKCS7 padding stripped only on
	// the last chunk) using key and iv, returning the plaintext. Callers
	// chain iv across calls for the same segment (plain CBC chaining: the
	// last ciphertext block of one chunk is the iv of the next), seeding it
	// fresh for a new segment.
	Decrypt(key, iv, src []byte, isLastChunk bool) ([]byte, error)
}

// DataArrivalState threads IV continuation across chunked calls to
// OnDataArrived for a single segment download.
type DataArrivalState struct {
	IV           [16]byte
	BytesWritten int
}

// unresolvedKIDSentinel marks a PSSHSet whose key-resolution request
// failed and should not be retried on every chunk.
const unresolvedKIDSentinel = "0"

// OnDataArrived is called for each chunk of a downloaded segment. When
// the segment's PSSHSet demands AES-128-style key-based decryption (i.e.
// it carries a real PSSHSet index and the period's encryption isn't
// already handled by a supported DRM decoder), it resolves the KID
// lazily via an HTTP GET whose response body IS the key, then decrypts
// the chunk; otherwise it returns the chunk unchanged.
func (t *Tree) OnDataArrived(ctx context.Context, segNum uint64, psshSet uint16, state *DataArrivalState, chunk []byte, isLastChunk bool) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	period := t.currentPeriodLocked()
	if period == nil {
		return chunk, nil
	}

	if psshSet == PSSHSetPosDefault || period.EncryptionState == EncryptionStateEncryptedSupported {
		return chunk, nil
	}

	if int(psshSet) >= len(period.PSSHSets) {
		t.log().Error(nil, "cannot get PSSHSet", logging.Fields{"pssh_set": psshSet})
		return chunk, nil
	}
	pssh := &period.PSSHSets[psshSet]

	if pssh.DefaultKID == "" {
		for i := range period.PSSHSets {
			if period.PSSHSets[i].PSSH == pssh.PSSH && period.PSSHSets[i].DefaultKID != "" {
				pssh.DefaultKID = period.PSSHSets[i].DefaultKID
				break
			}
		}
	}

	if pssh.DefaultKID == "" {
		if err := t.resolveKID(ctx, pssh); err != nil {
			t.log().Warn("KID resolution failed", logging.Fields{"error": err.Error()})
		}
	}

	if pssh.DefaultKID == unresolvedKIDSentinel {
		return make([]byte, len(chunk)), nil
	}

	if state.BytesWritten == 0 {
		if len(pssh.IV) == 0 {
			state.IV = t.decrypter.IVFromSequence(segNum)
		} else {
			var iv [16]byte
			copy(iv[:], pssh.IV)
			state.IV = iv
		}
	}

	plain, err := t.decrypter.Decrypt([]byte(pssh.DefaultKID), state.IV[:], chunk, isLastChunk)
	if err != nil {
		return nil, NewStreamError(t.manifestURL, ErrCodeFetch, "AES-128 decrypt failed", err)
	}
	state.BytesWritten += len(chunk)

	if len(chunk) >= 16 {
		copy(state.IV[:], chunk[len(chunk)-16:])
	}

	return plain, nil
}

// resolveKID performs the lazy key-resolution GET (the response body IS
// the KID) and retries once via license renewal on failure.
func (t *Tree) resolveKID(ctx context.Context, pssh *PSSHSet) error {
	keyParts := strings.Split(t.decrypter.LicenseKey(), "|")

	for attempt := 0; attempt < 2; attempt++ {
		url := pssh.PSSH
		headers := map[string]string{}
		if len(keyParts) > 0 && keyParts[0] != "" {
			url = appendQueryParams(url, keyParts[0])
		}
		if len(keyParts) > 1 {
			headers = parseHeaderString(keyParts[1])
		}

		data, _, err := t.fetcher.Fetch(ctx, url, headers)
		if err == nil {
			pssh.DefaultKID = string(data)
			return nil
		}

		pssh.DefaultKID = unresolvedKIDSentinel
		if attempt == 0 && len(keyParts) >= 5 && keyParts[4] != "" && t.decrypter.RenewLicense(ctx, keyParts[4]) {
			continue
		}
		return err
	}
	return nil
}

func appendQueryParams(url, params string) string {
	if params == "" {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + params
}

// parseHeaderString parses an RFC-7230-style header block ("Name: value"
// lines separated by \r\n), the format of the license-key string's
// header field.
func parseHeaderString(s string) map[string]string {
	headers := make(map[string]string)
	for _, line := range strings.Split(s, "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon == -1 {
			continue
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if name != "" {
			headers[name] = value
		}
	}
	return headers
}
