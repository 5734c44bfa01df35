package hls

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnDataArrivedPassthroughOnClearSegment(t *testing.T) {
	tree := openVOD(t, "https://cdn.example.com/index.m3u8", testMediaPlaylistVOD)
	state := &DataArrivalState{}
	chunk := []byte("clear-bytes")

	out, err := tree.OnDataArrived(context.Background(), 0, PSSHSetPosDefault, state, chunk, true)
	require.NoError(t, err)
	assert.Equal(t, chunk, out)
}

func TestOnDataArrivedPassthroughWhenSupportedDRM(t *testing.T) {
	tree := openVOD(t, "https://cdn.example.com/index.m3u8", testMediaPlaylistWidevine)
	period := tree.CurrentPeriod()
	rep := period.AdaptationSets[0].Representations[0]

	state := &DataArrivalState{}
	chunk := []byte("encrypted-by-decoder")
	out, err := tree.OnDataArrived(context.Background(), 0, rep.PSSHSetPos, state, chunk, true)
	require.NoError(t, err)
	assert.Equal(t, chunk, out)
}

func TestOnDataArrivedResolvesKIDAndDecrypts(t *testing.T) {
	tree := openVOD(t, "https://cdn.example.com/index.m3u8", testMediaPlaylistAES128)
	period := tree.CurrentPeriod()
	rep := period.AdaptationSets[0].Representations[0]
	segPos := rep.Segments[0].PSSHSet

	kf := &keyFetcher{key: "0123456789abcdef"}
	tree.fetcher = kf
	tree.decrypter = &stubDecrypter{}

	state := &DataArrivalState{}
	chunk := make([]byte, 32)
	out, err := tree.OnDataArrived(context.Background(), 0, segPos, state, chunk, true)
	require.NoError(t, err)
	assert.Len(t, out, 32)
	assert.Equal(t, 1, kf.requests)
	assert.Equal(t, "0123456789abcdef", period.PSSHSets[segPos].DefaultKID)
}

func TestOnDataArrivedSentinelOnUnresolvedKID(t *testing.T) {
	tree := openVOD(t, "https://cdn.example.com/index.m3u8", testMediaPlaylistAES128)
	period := tree.CurrentPeriod()
	rep := period.AdaptationSets[0].Representations[0]
	segPos := rep.Segments[0].PSSHSet

	tree.fetcher = &keyFetcher{err: errors.New("license server down")}
	tree.decrypter = &stubDecrypter{}

	state := &DataArrivalState{}
	chunk := []byte("0123456789abcdef")
	out, err := tree.OnDataArrived(context.Background(), 0, segPos, state, chunk, true)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, len(chunk)), out)
	assert.Equal(t, unresolvedKIDSentinel, period.PSSHSets[segPos].DefaultKID)
}

func TestOnDataArrivedRetriesAfterLicenseRenewal(t *testing.T) {
	tree := openVOD(t, "https://cdn.example.com/index.m3u8", testMediaPlaylistAES128)
	period := tree.CurrentPeriod()
	rep := period.AdaptationSets[0].Representations[0]
	segPos := rep.Segments[0].PSSHSet

	tree.fetcher = &keyFetcher{err: errors.New("expired")}
	decrypter := &stubDecrypter{licenseKey: "q=1|h=1|x|y|renew-param", renewResponse: true}
	tree.decrypter = decrypter

	pssh := &period.PSSHSets[segPos]
	err := tree.resolveKID(context.Background(), pssh)
	require.Error(t, err, "retry loop exhausts its two attempts before giving up")
	assert.Equal(t, 1, decrypter.renewCalls)
	assert.Equal(t, unresolvedKIDSentinel, pssh.DefaultKID)
}

func TestResolveKIDSharesAcrossMatchingPSSH(t *testing.T) {
	period := newPeriod()
	posA := insertTreePSSHSet(StreamTypeNone, period, 0, "same-pssh-blob", "resolved-kid", nil, CryptoModeNone)
	posB := insertTreePSSHSet(StreamTypeNone, period, 1, "same-pssh-blob", "", nil, CryptoModeNone)
	require.NotEqual(t, posA, posB, "different AdaptationSetID must intern into distinct slots")

	tree := &Tree{periods: []*Period{period}, currentPeriod: period, fetcher: newMapFetcher(), decrypter: &stubDecrypter{}, config: DefaultConfig(), sink: noopManifestSink{}}

	state := &DataArrivalState{}
	_, err := tree.OnDataArrived(context.Background(), 0, posB, state, []byte("data"), true)
	require.NoError(t, err)
	assert.Equal(t, "resolved-kid", period.PSSHSets[posB].DefaultKID, "KID copied from the matching PSSH slot without a fetch")
}

func TestAppendQueryParams(t *testing.T) {
	assert.Equal(t, "https://x/key?a=1", appendQueryParams("https://x/key", "a=1"))
	assert.Equal(t, "https://x/key?a=1&b=2", appendQueryParams("https://x/key?a=1", "b=2"))
	assert.Equal(t, "https://x/key", appendQueryParams("https://x/key", ""))
}

func TestParseHeaderString(t *testing.T) {
	headers := parseHeaderString("X-Foo: bar\r\nX-Baz: qux")
	assert.Equal(t, "bar", headers["X-Foo"])
	assert.Equal(t, "qux", headers["X-Baz"])
}
