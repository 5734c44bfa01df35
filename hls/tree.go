package hls

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/streamtree/hlstree/logging"
)

// ManifestSink receives a copy of every manifest this Tree downloads, so
// an external persistent-dump facility can attach to it. The Tree itself
// never persists manifests.
type ManifestSink interface {
	SaveManifest(kind string, streamType StreamType, data []byte, sourceURL string)
}

type noopManifestSink struct{}

func (noopManifestSink) SaveManifest(string, StreamType, []byte, string) {}

// Tree is the live, refreshable data-model store for one HLS stream: a
// sequence of Periods guarded by a mutex so the refresh loop and a
// consumer's PrepareRepresentation/OnDataArrived calls can run
// concurrently.
type Tree struct {
	mu sync.Mutex

	periods       []*Period
	currentPeriod *Period

	manifestURL string
	baseURL     string

	discontSeq       uint32
	hasDiscontSeq    bool
	initialSequence  *uint32
	refreshPlaylist  bool
	hasTimeshiftBuf  bool
	updateIntervalMS uint32
	totalTimeSecs    uint64
	lastUpdated      time.Time
	startTimeOffset  *float64

	fetcher   Fetcher
	decrypter Decrypter
	sink      ManifestSink
	config    *Config
}

// newTree allocates a Tree with its ambient collaborators and sane
// defaults: timeshift buffering assumed until the playlist says
// otherwise, update interval high until EXT-X-TARGETDURATION narrows it.
func newTree(fetcher Fetcher, decrypter Decrypter, cfg *Config) *Tree {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Tree{
		refreshPlaylist:  true,
		hasTimeshiftBuf:  true,
		updateIntervalMS: cfg.Refresh.MaxUpdateIntervalMS,
		fetcher:          fetcher,
		decrypter:        decrypter,
		sink:             noopManifestSink{},
		config:           cfg,
	}
}

// Open fetches url, determines whether it is a master or media playlist,
// and builds the initial Period.
func Open(ctx context.Context, url string, fetcher Fetcher, decrypter Decrypter, cfg *Config) (*Tree, error) {
	t := newTree(fetcher, decrypter, cfg)
	t.manifestURL = url

	data, effectiveURL, err := fetcher.Fetch(ctx, url, nil)
	if err != nil {
		return nil, NewStreamError(url, ErrCodeFetch, "failed to download manifest", err)
	}
	t.sink.SaveManifest("master", StreamTypeNone, data, url)

	t.baseURL = baseURLOf(effectiveURL)
	t.manifestURL = effectiveURL

	lines, err := Lex(strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}

	if isMasterPlaylist(lines) {
		period, err := ParseMaster(lines, t.baseURL, t.manifestURL)
		if err != nil {
			return nil, err
		}
		t.periods = append(t.periods, period)
		t.currentPeriod = period
	} else {
		period := newPeriod()
		adp := &AdaptationSet{StreamType: StreamTypeVideo}
		rep := &Representation{
			Timescale:         DefaultTimescale,
			CurrentSegmentNum: SegmentNoNumber,
			PSSHSetPos:        PSSHSetPosDefault,
			SourceURL:         t.manifestURL,
		}
		adp.Representations = append(adp.Representations, rep)
		period.AdaptationSets = append(period.AdaptationSets, adp)
		t.periods = append(t.periods, period)
		t.currentPeriod = period

		status, err := t.prepareRepresentation(ctx, period, adp, rep, false)
		if err != nil {
			return nil, err
		}
		if status == PrepareRepFailure {
			return nil, NewStreamError(url, ErrCodeEmptyTimeline, "initial media playlist had no segments", nil)
		}
	}

	t.lastUpdated = time.Now()
	return t, nil
}

// isMasterPlaylist reports whether the lexed lines describe a master
// playlist (carries EXT-X-STREAM-INF or EXT-X-MEDIA) rather than a media
// playlist (carries EXTINF directly).
func isMasterPlaylist(lines []Line) bool {
	for _, l := range lines {
		if !l.IsTag {
			continue
		}
		switch l.TagName {
		case "#EXT-X-STREAM-INF", "#EXT-X-MEDIA":
			return true
		case "#EXTINF":
			return false
		}
	}
	return false
}

func baseURLOf(u string) string {
	idx := strings.LastIndexByte(u, '/')
	if idx == -1 {
		return u
	}
	return u[:idx+1]
}

// CurrentPeriod returns the Period the consumer is currently reading
// from.
func (t *Tree) CurrentPeriod() *Period {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentPeriodLocked()
}

func (t *Tree) currentPeriodLocked() *Period {
	return t.currentPeriod
}

// Periods returns a snapshot slice of every Period currently held.
func (t *Tree) Periods() []*Period {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Period, len(t.periods))
	copy(out, t.periods)
	return out
}

// TotalDuration returns the sum, in seconds, of every known Period's
// duration.
func (t *Tree) TotalDuration() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalTimeSecs
}

// SetManifestSink installs a hook invoked with every downloaded manifest
// payload.
func (t *Tree) SetManifestSink(sink ManifestSink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sink == nil {
		sink = noopManifestSink{}
	}
	t.sink = sink
}

func (t *Tree) log() logging.Logger {
	return logging.WithFields(logging.Fields{"component": "hls.Tree", "url": t.manifestURL})
}
