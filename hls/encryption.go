package hls

import (
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/streamtree/hlstree/logging"
)

const widevineKeyFormat = "urn:uuid:edef8ba9-79d6-4ace-a3c8-27dcd51d21ed"
const appleStreamingKeyFormat = "com.apple.streamingkeydelivery"

// encryptionResult carries everything processEncryption extracts from one
// EXT-X-KEY/EXT-X-SESSION-KEY attribute set, beyond its classification.
type encryptionResult struct {
	Type       EncryptionType
	PSSH       string
	DefaultKID string
	IV         []byte
	CryptoMode CryptoMode
}

// processEncryption classifies one EXT-X-KEY/EXT-X-SESSION-KEY tag's
// attributes and extracts PSSH/KID/IV/crypto-mode as applicable.
func processEncryption(baseURL string, attribs map[string]string) encryptionResult {
	method := attribs["METHOD"]

	if method == "NONE" {
		return encryptionResult{Type: EncryptionTypeClear}
	}

	if method == "AES-128" && attribs["URI"] != "" {
		uri := resolveURI(baseURL, attribs["URI"])
		return encryptionResult{
			Type: EncryptionTypeAES128,
			PSSH: uri,
			IV:   convertIV(attribs["IV"]),
		}
	}

	if strings.EqualFold(attribs["KEYFORMAT"], widevineKeyFormat) && attribs["URI"] != "" {
		res := encryptionResult{Type: EncryptionTypeWidevine}

		if keyid := attribs["KEYID"]; len(keyid) > 2 {
			res.DefaultKID = decodeHexKID(keyid[2:])
		}

		uri := attribs["URI"]
		if len(uri) > 23 {
			res.PSSH = uri[23:]
		}

		if res.DefaultKID == "" && len(res.PSSH) == 68 {
			if decoded, err := base64.StdEncoding.DecodeString(res.PSSH); err == nil && len(decoded) == 50 {
				res.DefaultKID = string(decoded[34:50])
			}
		}

		switch method {
		case "SAMPLE-AES-CTR":
			res.CryptoMode = CryptoModeAESCTR
		case "SAMPLE-AES":
			res.CryptoMode = CryptoModeAESCBC
		}

		return res
	}

	if strings.EqualFold(attribs["KEYFORMAT"], appleStreamingKeyFormat) {
		logging.WithFields(logging.Fields{"function": "processEncryption"}).
			Debug("keyformat not supported", logging.Fields{"keyformat": attribs["KEYFORMAT"]})
		return encryptionResult{Type: EncryptionTypeNotSupported}
	}

	return encryptionResult{Type: EncryptionTypeUnknown}
}

// decodeHexKID decodes a hex-encoded 32-character (16-byte) KID,
// tolerating odd-length or short input by padding/truncating to 32 hex
// chars first.
func decodeHexKID(hexKID string) string {
	const wantLen = 32
	if len(hexKID) < wantLen {
		hexKID = hexKID + strings.Repeat("0", wantLen-len(hexKID))
	} else if len(hexKID) > wantLen {
		hexKID = hexKID[:wantLen]
	}
	hexKID = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			return r
		default:
			return '0'
		}
	}, hexKID)
	decoded, err := hex.DecodeString(hexKID)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// convertIV parses a "0x..." hex IV attribute value into raw bytes.
func convertIV(iv string) []byte {
	iv = strings.TrimPrefix(iv, "0x")
	iv = strings.TrimPrefix(iv, "0X")
	if iv == "" {
		return nil
	}
	decoded, err := hex.DecodeString(iv)
	if err != nil {
		return nil
	}
	return decoded
}

func resolveURI(base, ref string) string {
	if !isURLRelative(ref) {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func isURLRelative(u string) bool {
	return !strings.Contains(u, "://")
}
