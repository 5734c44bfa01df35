package hls

import (
	"context"
	"math"
	"strings"

	"github.com/streamtree/hlstree/logging"
)

// PrepareRepresentation downloads and parses rep's child playlist,
// (re)building its segment timeline in place. update distinguishes a live
// refresh (true, preserving the consumer's current-segment cursor) from
// the first build (false). It returns DRMChanged/DRMUnchanged when a
// Widevine EXT-X-KEY was encountered, so a caller can decide whether a
// license needs renegotiating.
func (t *Tree) PrepareRepresentation(ctx context.Context, adp *AdaptationSet, rep *Representation, update bool) (PrepareRepStatus, error) {
	t.mu.Lock()
	period := t.currentPeriodLocked()
	t.mu.Unlock()
	return t.prepareRepresentation(ctx, period, adp, rep, update)
}

// prepareRepresentation performs the blocking child-playlist download
// with the tree lock released, so foreground reads never stall behind
// the HTTP round-trip, then applies the parsed result under the lock.
func (t *Tree) prepareRepresentation(ctx context.Context, period *Period, adp *AdaptationSet, rep *Representation, update bool) (PrepareRepStatus, error) {
	t.mu.Lock()
	sourceURL := rep.SourceURL
	needsFetch := !rep.DownloadComplete
	sink := t.sink
	t.mu.Unlock()

	if sourceURL == "" && needsFetch {
		return PrepareRepFailure, nil
	}

	var data []byte
	var baseURL string
	if needsFetch {
		body, effectiveURL, err := t.fetcher.Fetch(ctx, sourceURL, t.config.GetHTTPHeaders())
		if err != nil {
			t.log().Warn("failed to download child playlist", logging.Fields{
				"url": sourceURL, "error": err.Error(),
			})
		} else {
			sink.SaveManifest("child-"+adp.StreamType.String(), adp.StreamType, body, sourceURL)
			data = body
			baseURL = stripQuery(effectiveURL)
		}
	}

	return t.applyChildPlaylist(period, adp, rep, update, data, baseURL)
}

// applyChildPlaylist rebuilds rep's segment timeline from a downloaded
// child playlist (data is nil when the download failed or was skipped)
// and repositions the consumer's cursor, all under the tree lock.
func (t *Tree) applyChildPlaylist(period *Period, adp *AdaptationSet, rep *Representation, update bool, data []byte, baseURL string) (PrepareRepStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entryRep := rep
	currentRepSegNumber := rep.CurrentSegmentNum

	adpSetPos := indexOfAdaptationSet(period.AdaptationSets, adp)
	reprPos := indexOfRepresentation(adp.Representations, rep)

	var detached *Period
	prepareStatus := PrepareRepOK

	if data != nil {
		lines, lexErr := Lex(strings.NewReader(string(data)))
		if lexErr != nil {
			return PrepareRepFailure, lexErr
		}

		currentEncryptionType := EncryptionTypeClear
		var currentPSSH, currentKID string
		var currentIV []byte
		var currentCryptoMode CryptoMode

		var currentSegStartPts uint64
		var newStartNumber uint64
		var newSegments []Segment
		var newSegment *Segment
		segmentHasByteRange := false
		psshSetPos := PSSHSetPosDefault

		var segInit Segment
		var segInitURL string
		hasSegmentInit := false

		var discontCount uint32

		for idx := 0; idx < len(lines); idx++ {
			line := lines[idx]

			switch {
			case line.IsTag && line.TagName == "#EXT-X-KEY":
				attribs := ParseAttributes(line.TagValue)
				res := processEncryption(baseURL, attribs)
				switch res.Type {
				case EncryptionTypeNotSupported:
					period.EncryptionState = EncryptionStateEncrypted
					return PrepareRepFailure, nil
				case EncryptionTypeAES128:
					currentEncryptionType = EncryptionTypeAES128
					currentPSSH, currentKID, currentIV, currentCryptoMode = res.PSSH, res.DefaultKID, res.IV, CryptoModeNone
					psshSetPos = PSSHSetPosDefault
				case EncryptionTypeWidevine:
					currentEncryptionType = EncryptionTypeWidevine
					currentPSSH, currentKID, currentIV, currentCryptoMode = res.PSSH, res.DefaultKID, res.IV, res.CryptoMode
					period.EncryptionState = EncryptionStateEncryptedSupported

					rep.PSSHSetPos = insertTreePSSHSet(adp.StreamType, period, adpSetPos, currentPSSH, currentKID, currentIV, currentCryptoMode)
					if period.PSSHSets[rep.PSSHSetPos].UsageCount == 1 || prepareStatus == PrepareRepDRMChanged {
						prepareStatus = PrepareRepDRMChanged
					} else {
						prepareStatus = PrepareRepDRMUnchanged
					}
				case EncryptionTypeUnknown:
					t.log().Warn("unknown encryption type")
				}

			case line.IsTag && line.TagName == "#EXT-X-MAP":
				attribs := ParseAttributes(line.TagValue)
				if uri, ok := attribs["URI"]; ok {
					segInitURL = resolveURI(baseURL, uri)
					segInit = Segment{URL: segInitURL, StartPTS: NoPTSValue, PSSHSet: PSSHSetPosDefault}
					rep.HasInit = true
					rep.Container = ContainerMP4
					hasSegmentInit = true
				}
				if br, ok := attribs["BYTERANGE"]; ok {
					length, offset, hasOffset := ParseRangeValues(br)
					if hasOffset {
						segInit.Range = ByteRange{Begin: offset, End: offset + length - 1}
					}
				} else {
					segInit.Range.Begin = NoRangeValue
				}

			case line.IsTag && line.TagName == "#EXT-X-MEDIA-SEQUENCE":
				newStartNumber = atoui64Safe(line.TagValue)

			case line.IsTag && line.TagName == "#EXT-X-PLAYLIST-TYPE":
				if strings.EqualFold(line.TagValue, "VOD") {
					t.refreshPlaylist = false
					t.hasTimeshiftBuf = false
				}

			case line.IsTag && line.TagName == "#EXT-X-TARGETDURATION":
				targetSecs := atoui64Safe(line.TagValue)
				newIntervalMS := uint32(targetSecs * 1500)
				if newIntervalMS < t.updateIntervalMS {
					t.updateIntervalMS = newIntervalMS
				}

			case line.IsTag && line.TagName == "#EXTINF":
				seg := Segment{StartPTS: currentSegStartPts, PSSHSet: psshSetPos, Title: extinfTitle(line.TagValue)}
				duration := uint64(math.Ceil(atofSafe(line.TagValue) * float64(rep.Timescale)))
				seg.Duration = duration
				newSegment = &seg
				currentSegStartPts += duration

			case line.IsTag && line.TagName == "#EXT-X-BYTERANGE" && newSegment != nil:
				length, offset, hasOffset := ParseRangeValues(line.TagValue)
				switch {
				case hasOffset:
					newSegment.Range.Begin = offset
				case len(newSegments) > 0:
					newSegment.Range.Begin = newSegments[len(newSegments)-1].Range.End + 1
				default:
					newSegment.Range.Begin = 0
				}
				newSegment.Range.End = newSegment.Range.Begin + length - 1
				segmentHasByteRange = true

			case line.IsURI && newSegment != nil:
				if rep.Container == ContainerNoType {
					rep.Container = detectContainerFromLine(line.Raw, adp.StreamType, t.log())
				} else if rep.Container == ContainerInvalid {
					newSegment = nil
					continue
				}

				if !segmentHasByteRange || rep.SegmentsBaseURL == "" {
					url := resolveURI(baseURL, line.Raw)
					if !segmentHasByteRange {
						newSegment.URL = url
					} else {
						rep.SegmentsBaseURL = url
					}
				}

				if currentEncryptionType == EncryptionTypeAES128 {
					if psshSetPos == PSSHSetPosDefault {
						psshSetPos = insertTreePSSHSet(StreamTypeNone, period, -1, currentPSSH, currentKID, currentIV, currentCryptoMode)
						newSegment.PSSHSet = psshSetPos
					} else {
						bumpPSSHSetUsage(period, newSegment.PSSHSet)
					}
				} else {
					newSegment.PSSHSet = insertPSSHSetSentinel(period)
				}

				newSegments = append(newSegments, *newSegment)
				newSegment = nil

			case line.IsTag && line.TagName == "#EXT-X-DISCONTINUITY-SEQUENCE":
				t.discontSeq = uint32(atoui64Safe(line.TagValue))
				if t.initialSequence == nil {
					v := t.discontSeq
					t.initialSequence = &v
				}
				t.hasDiscontSeq = true
				if !update && t.discontSeq > 0 && t.periods[0].Sequence == 0 {
					t.periods[0].Sequence = t.discontSeq
				}

				kept := t.periods[:0]
				for _, p := range t.periods {
					if p.Sequence < t.discontSeq {
						if p != t.currentPeriod {
							continue
						}
						detached = p
						continue
					}
					kept = append(kept, p)
				}
				t.periods = kept
				if len(t.periods) == 0 && detached != nil {
					t.periods = append(t.periods, detached)
					detached = nil
				}

				period = t.periods[0]
				adp = period.AdaptationSets[adpSetPos]
				rep = adp.Representations[reprPos]

			case line.IsTag && line.TagName == "#EXT-X-DISCONTINUITY":
				if len(newSegments) == 0 {
					t.log().Error(nil, "segment at position 0 not found")
					continue
				}

				period.Sequence = t.discontSeq + discontCount
				if !segmentHasByteRange {
					rep.HasSegmentsURL = true
				}

				duration := currentSegStartPts - newSegments[0].StartPTS
				rep.Duration = duration

				if adp.StreamType != StreamTypeSubtitle {
					target := t.periods[discontCount]
					periodDuration := rep.Duration * target.Timescale / rep.Timescale
					period.Duration = periodDuration
				}

				freeSegments(period, rep)
				rep.Segments = newSegments
				newSegments = nil
				rep.StartNumber = newStartNumber

				if hasSegmentInit {
					rep.InitSegment, segInit = segInit, rep.InitSegment
					segInit.URL = segInitURL
				}

				discontCount++
				if uint32(len(t.periods)) == discontCount {
					newP := period.clone()
					period = newP
					t.periods = append(t.periods, newP)
				} else {
					period = t.periods[discontCount]
				}

				newStartNumber += uint64(len(rep.Segments))
				adp = period.AdaptationSets[adpSetPos]
				rep = adp.Representations[reprPos]
				currentSegStartPts = 0

				if currentEncryptionType == EncryptionTypeWidevine {
					rep.PSSHSetPos = insertTreePSSHSet(adp.StreamType, period, adpSetPos, currentPSSH, currentKID, currentIV, currentCryptoMode)
					period.EncryptionState = EncryptionStateEncryptedSupported
				}

				if hasSegmentInit && segInitURL != "" {
					rep.HasInit = true
					rep.Container = ContainerMP4
				}

			case line.IsTag && line.TagName == "#EXT-X-ENDLIST":
				t.refreshPlaylist = false
				t.hasTimeshiftBuf = false

			case line.IsTag && line.TagName == "#EXT-X-START":
				attribs := ParseAttributes(line.TagValue)
				if off, ok := attribs["TIME-OFFSET"]; ok {
					if rep.Headers == nil {
						rep.Headers = make(map[string]string)
					}
					rep.Headers["EXT-X-START-TIME-OFFSET"] = off
				}
			}
		}

		if !segmentHasByteRange {
			rep.HasSegmentsURL = true
		}
		freeSegments(period, rep)

		if len(newSegments) == 0 {
			return PrepareRepFailure, NewStreamError(rep.SourceURL, ErrCodeEmptyTimeline, "no segments parsed", nil)
		}

		rep.Segments = newSegments
		rep.StartNumber = newStartNumber
		if hasSegmentInit {
			rep.InitSegment, segInit = segInit, rep.InitSegment
		}

		var reprDuration uint64
		if len(rep.Segments) > 0 {
			reprDuration = currentSegStartPts - rep.Segments[0].StartPTS
		}
		rep.Duration = reprDuration
		period.Sequence = t.discontSeq + discontCount

		var totalTimeSecs uint64
		if discontCount > 0 || t.hasDiscontSeq {
			if adp.StreamType != StreamTypeSubtitle {
				target := t.periods[discontCount]
				periodDuration := rep.Duration * target.Timescale / rep.Timescale
				target.Duration = periodDuration
			}
			for _, p := range t.periods {
				if p.Timescale > 0 {
					totalTimeSecs += p.Duration / p.Timescale
				}
				if !t.hasTimeshiftBuf && !t.refreshPlaylist {
					p.AdaptationSets[adpSetPos].Representations[reprPos].DownloadComplete = true
				}
			}
		} else {
			if rep.Timescale > 0 {
				totalTimeSecs = rep.Duration / rep.Timescale
			}
			if !t.hasTimeshiftBuf && !t.refreshPlaylist {
				rep.DownloadComplete = true
			}
		}

		if adp.StreamType != StreamTypeSubtitle {
			t.totalTimeSecs = totalTimeSecs
		}
	}

	if update {
		if currentRepSegNumber == 0 || currentRepSegNumber < entryRep.StartNumber || currentRepSegNumber == SegmentNoNumber {
			entryRep.CurrentSegment = nil
		} else {
			if currentRepSegNumber >= entryRep.StartNumber+uint64(len(entryRep.Segments)) {
				currentRepSegNumber = entryRep.StartNumber + uint64(len(entryRep.Segments)) - 1
			}
			entryRep.CurrentSegment = entryRep.segmentAt(currentRepSegNumber)
		}
		if entryRep.IsWaitingForSeg {
			hasNext := entryRep.nextSegment(entryRep.CurrentSegment) != nil
			notLastPeriod := t.currentPeriod != t.periods[len(t.periods)-1]
			if hasNext || notLastPeriod {
				entryRep.IsWaitingForSeg = false
			}
		}
	}

	if detached != nil {
		t.periods = append([]*Period{detached}, t.periods...)
	}

	return prepareStatus, nil
}

func indexOfAdaptationSet(sets []*AdaptationSet, target *AdaptationSet) int {
	for i, s := range sets {
		if s == target {
			return i
		}
	}
	return -1
}

func indexOfRepresentation(reps []*Representation, target *Representation) int {
	for i, r := range reps {
		if r == target {
			return i
		}
	}
	return -1
}

// detectContainerFromLine guesses a Representation's container type from
// a segment URL's file extension, falling back to a stream-type default
// when the extension is absent or unrecognized.
func detectContainerFromLine(line string, streamType StreamType, log logging.Logger) ContainerType {
	ext := extractExtension(line)
	containerType := ContainerInvalid
	if ext != "" {
		containerType = containerTypeFromExt(ext)
	}
	if containerType == ContainerInvalid {
		switch streamType {
		case StreamTypeVideo:
			log.Warn("cannot detect container type from media url, fallback to TS")
			containerType = ContainerTS
		case StreamTypeAudio:
			log.Warn("cannot detect container type from media url, fallback to ADTS")
			containerType = ContainerADTS
		case StreamTypeSubtitle:
			log.Warn("cannot detect container type from media url, fallback to TEXT")
			containerType = ContainerText
		}
	}
	return containerType
}

func containerTypeFromExt(ext string) ContainerType {
	switch strings.ToLower(ext) {
	case "ts":
		return ContainerTS
	case "aac":
		return ContainerADTS
	case "mp4":
		return ContainerMP4
	case "vtt", "webvtt":
		return ContainerText
	default:
		return ContainerInvalid
	}
}

func extractExtension(line string) string {
	path := stripQuery(line)
	dot := strings.LastIndexByte(path, '.')
	if dot == -1 {
		return ""
	}
	return path[dot+1:]
}

// extinfTitle extracts the optional ",title" suffix of an EXTINF tag value
// ("duration[,title]").
func extinfTitle(tagValue string) string {
	comma := strings.IndexByte(tagValue, ',')
	if comma == -1 {
		return ""
	}
	return tagValue[comma+1:]
}

func stripQuery(u string) string {
	if q := strings.IndexByte(u, '?'); q != -1 {
		return u[:q]
	}
	return u
}
