package hls

import "strings"

// Sentinels for "unset" values.
const (
	// NoPTSValue marks a PTS that has not been assigned.
	NoPTSValue uint64 = ^uint64(0)
	// NoRangeValue marks a byte-range bound that has not been assigned.
	NoRangeValue uint64 = ^uint64(0)
	// SegmentNoNumber marks "no current segment" on a Representation.
	SegmentNoNumber uint64 = ^uint64(0)
	// PSSHSetPosDefault is the sentinel "clear content" PSSHSet index, always
	// position 0 in every Period's PSSHSet table.
	PSSHSetPosDefault uint16 = 0
	// DefaultTimescale is the tick rate assumed unless a component overrides it.
	DefaultTimescale uint64 = 1000000
)

// StreamType classifies an AdaptationSet/Representation by media kind.
type StreamType uint8

const (
	StreamTypeNone StreamType = iota
	StreamTypeVideo
	StreamTypeAudio
	StreamTypeSubtitle
)

func (t StreamType) String() string {
	switch t {
	case StreamTypeVideo:
		return "video"
	case StreamTypeAudio:
		return "audio"
	case StreamTypeSubtitle:
		return "subtitle"
	default:
		return "none"
	}
}

// ContainerType classifies the media container carrying a Representation's
// segments.
type ContainerType uint8

const (
	// ContainerNoType means detection has not yet run.
	ContainerNoType ContainerType = iota
	ContainerTS
	ContainerADTS
	ContainerMP4
	ContainerText
	// ContainerInvalid means detection ran and failed; segments are dropped
	// until a new container type is established.
	ContainerInvalid
)

// EncryptionType classifies a single EXT-X-KEY / EXT-X-SESSION-KEY tag.
type EncryptionType uint8

const (
	EncryptionTypeClear EncryptionType = iota
	EncryptionTypeAES128
	EncryptionTypeWidevine
	EncryptionTypeNotSupported
	EncryptionTypeUnknown
)

// EncryptionState is the Period-level encryption classification.
type EncryptionState uint8

const (
	EncryptionStateUnencrypted EncryptionState = iota
	EncryptionStateEncrypted
	EncryptionStateEncryptedSupported
)

// CryptoMode distinguishes sample-level AES chaining modes signaled by
// SAMPLE-AES vs SAMPLE-AES-CTR.
type CryptoMode uint8

const (
	CryptoModeNone CryptoMode = iota
	CryptoModeAESCTR
	CryptoModeAESCBC
)

// PrepareRepStatus is the return status of PrepareRepresentation.
type PrepareRepStatus uint8

const (
	PrepareRepOK PrepareRepStatus = iota
	PrepareRepDRMChanged
	PrepareRepDRMUnchanged
	PrepareRepFailure
)

// ByteRange is an absolute inclusive byte range on a segment.
type ByteRange struct {
	Begin uint64
	End   uint64
}

// HasRange reports whether the range was ever assigned.
func (r ByteRange) HasRange() bool {
	return r.Begin != NoRangeValue
}

// Segment is one media chunk: a byte range or standalone URL, plus its
// place in the Representation's PTS timeline.
type Segment struct {
	URL       string
	Range     ByteRange
	StartPTS  uint64
	Duration  uint64
	PSSHSet   uint16
	Title     string
}

// EndPTS returns the PTS immediately after this segment.
func (s Segment) EndPTS() uint64 {
	return s.StartPTS + s.Duration
}

// PSSHSet interns (PSSH/URI blob, default KID, IV, stream type,
// adaptation-set back-reference, crypto mode) with a usage counter.
type PSSHSet struct {
	PSSH            string
	DefaultKID      string
	IV              []byte
	StreamType      StreamType
	AdaptationSetID int // index into Period.AdaptationSets, -1 for the sentinel and AES-128 key entries
	CryptoMode      CryptoMode
	UsageCount      int
}

// equalKey reports whether two PSSHSets should be treated as the same
// interned entry. Usage counts are ignored; an empty DefaultKID on either
// side is ignored too, since the KID may be filled in later by the
// decrypter path.
func (p PSSHSet) equalKey(other PSSHSet) bool {
	if p.PSSH != other.PSSH || p.StreamType != other.StreamType ||
		p.AdaptationSetID != other.AdaptationSetID || p.CryptoMode != other.CryptoMode {
		return false
	}
	if p.DefaultKID != "" && other.DefaultKID != "" && p.DefaultKID != other.DefaultKID {
		return false
	}
	if string(p.IV) != string(other.IV) {
		return false
	}
	return true
}

// Representation is one rendition: a source child-playlist URL, its
// encoding parameters, and its segment timeline.
type Representation struct {
	SourceURL         string
	Bandwidth         int
	Width             int
	Height            int
	FrameRate         uint32 // frame rate * FrameRateScale
	FrameRateScale    uint32
	Codecs            []string
	Channels          int
	Timescale         uint64
	Container         ContainerType
	AssuredBufferDur  uint64
	MaxBufferDur      uint64
	StartNumber       uint64
	HasInit           bool
	InitSegment       Segment
	InitURL           string
	Segments          []Segment
	CurrentSegment    *Segment
	CurrentSegmentNum uint64
	IsWaitingForSeg   bool
	DownloadComplete  bool
	IsIncludedStream  bool
	HasSegmentsURL    bool   // segments carry their own URLs (not a byte-range playlist)
	SegmentsBaseURL   string // shared URL every byte-range segment addresses into
	PSSHSetPos        uint16
	Duration          uint64
	Headers           map[string]string // ambient tags kept verbatim (e.g. EXT-X-START)
}

// ContainsCodec reports whether any codec string contains substr.
func (r *Representation) ContainsCodec(substr string) bool {
	for _, c := range r.Codecs {
		if containsFold(c, substr) {
			return true
		}
	}
	return false
}

// segmentAt returns the segment at absolute number segNum, or nil if out
// of range.
func (r *Representation) segmentAt(segNum uint64) *Segment {
	if segNum < r.StartNumber {
		return nil
	}
	idx := segNum - r.StartNumber
	if idx >= uint64(len(r.Segments)) {
		return nil
	}
	return &r.Segments[idx]
}

// nextSegment returns the segment following cur in this Representation's
// timeline, or nil if cur is the last one (or nil itself).
func (r *Representation) nextSegment(cur *Segment) *Segment {
	if cur == nil {
		if len(r.Segments) == 0 {
			return nil
		}
		return &r.Segments[0]
	}
	for i := range r.Segments {
		if &r.Segments[i] == cur {
			if i+1 < len(r.Segments) {
				return &r.Segments[i+1]
			}
			return nil
		}
	}
	return nil
}

// AdaptationSet groups interchangeable Representations of one stream type.
type AdaptationSet struct {
	StreamType      StreamType
	Language        string
	Name            string
	IsDefault       bool
	IsForced        bool
	Container       ContainerType
	Representations []*Representation
}

// clone returns a structural copy: same metadata, same Representations
// (cloned with empty segment timelines), used for period cloning on
// discontinuity.
func (a *AdaptationSet) clone() *AdaptationSet {
	na := &AdaptationSet{
		StreamType: a.StreamType,
		Language:   a.Language,
		Name:       a.Name,
		IsDefault:  a.IsDefault,
		IsForced:   a.IsForced,
		Container:  a.Container,
	}
	na.Representations = make([]*Representation, len(a.Representations))
	for i, r := range a.Representations {
		nr := &Representation{
			SourceURL:         r.SourceURL,
			Bandwidth:         r.Bandwidth,
			Width:             r.Width,
			Height:            r.Height,
			FrameRate:         r.FrameRate,
			FrameRateScale:    r.FrameRateScale,
			Codecs:            append([]string(nil), r.Codecs...),
			Channels:          r.Channels,
			Timescale:         r.Timescale,
			Container:         r.Container,
			AssuredBufferDur:  r.AssuredBufferDur,
			MaxBufferDur:      r.MaxBufferDur,
			IsIncludedStream:  r.IsIncludedStream,
			PSSHSetPos:        PSSHSetPosDefault,
			CurrentSegmentNum: SegmentNoNumber,
		}
		na.Representations[i] = nr
	}
	return na
}

// Period is a contiguous timeline segment between discontinuities.
type Period struct {
	AdaptationSets     []*AdaptationSet
	PSSHSets           []PSSHSet
	Timescale          uint64
	Start              uint64
	StartPTS           uint64
	Duration           uint64
	Sequence           uint32
	EncryptionState    EncryptionState
	IncludedStreamMask uint8
}

// newPeriod creates a Period with the clear-content sentinel PSSHSet at
// index 0.
func newPeriod() *Period {
	return &Period{
		Timescale: DefaultTimescale,
		PSSHSets:  []PSSHSet{{AdaptationSetID: -1}},
	}
}

// clone produces a structural copy of the Period: AdaptationSets and
// Representations are replicated with their segment timelines reset.
func (p *Period) clone() *Period {
	np := newPeriod()
	np.Timescale = p.Timescale
	np.Start = p.Start
	np.StartPTS = p.StartPTS
	np.EncryptionState = p.EncryptionState
	np.IncludedStreamMask = p.IncludedStreamMask

	np.AdaptationSets = make([]*AdaptationSet, len(p.AdaptationSets))
	for i, a := range p.AdaptationSets {
		np.AdaptationSets[i] = a.clone()
	}
	return np
}

// ExtGroup buffers EXT-X-MEDIA alternate renditions under their GROUP-ID
// during master-playlist parsing, transient to that scope.
type ExtGroup struct {
	Codecs         string
	AdaptationSets []*AdaptationSet
}

func (g *ExtGroup) setCodecs(codec string) {
	g.Codecs = codec
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
