package hls

import "github.com/streamtree/hlstree/logging"

// ParseMaster builds a single Period from a master playlist: one video
// AdaptationSet carrying every EXT-X-STREAM-INF variant, plus one
// AdaptationSet per EXT-X-MEDIA GROUP-ID, plus (when a variant names no
// AUDIO group, so its audio is muxed into the video stream) a dummy
// included-stream audio AdaptationSet standing for that embedded audio.
func ParseMaster(lines []Line, baseURL, manifestURL string) (*Period, error) {
	period := newPeriod()
	groups := make(map[string]*ExtGroup)
	groupOrder := []string{}

	var createDummyAudio bool
	var videoAdp *AdaptationSet

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !line.IsTag {
			continue
		}

		switch line.TagName {
		case "#EXT-X-MEDIA":
			attribs := ParseAttributes(line.TagValue)

			var streamType StreamType
			switch attribs["TYPE"] {
			case "AUDIO":
				streamType = StreamTypeAudio
			case "SUBTITLES":
				streamType = StreamTypeSubtitle
			default:
				continue
			}

			groupID := attribs["GROUP-ID"]
			group, ok := groups[groupID]
			if !ok {
				group = &ExtGroup{}
				groups[groupID] = group
				groupOrder = append(groupOrder, groupID)
			}

			adp := &AdaptationSet{StreamType: streamType}
			lang := attribs["LANGUAGE"]
			if lang == "" {
				lang = "unk"
			}
			adp.Language = lang
			adp.Name = attribs["NAME"]
			adp.IsDefault = attribs["DEFAULT"] == "YES"
			adp.IsForced = attribs["FORCED"] == "YES"

			rep := &Representation{
				Timescale:         DefaultTimescale,
				CurrentSegmentNum: SegmentNoNumber,
				PSSHSetPos:        PSSHSetPosDefault,
			}
			if group.Codecs != "" {
				rep.Codecs = append(rep.Codecs, group.Codecs)
			}

			if uri, ok := attribs["URI"]; ok {
				rep.SourceURL = resolveURI(baseURL, uri)
				if streamType == StreamTypeSubtitle {
					rep.Codecs = append(rep.Codecs, "wvtt")
				}
			} else {
				rep.IsIncludedStream = true
				period.IncludedStreamMask |= 1 << uint(streamType)
			}

			if streamType == StreamTypeAudio {
				rep.Channels = atoiSafeDefault(attribs["CHANNELS"], 2)
			}

			adp.Representations = append(adp.Representations, rep)
			group.AdaptationSets = append(group.AdaptationSets, adp)

		case "#EXT-X-STREAM-INF":
			attribs := ParseAttributes(line.TagValue)

			bandwidth, hasBandwidth := attribs["BANDWIDTH"]
			if !hasBandwidth {
				logging.WithFields(logging.Fields{"function": "ParseMaster"}).
					Warn("skipped EXT-X-STREAM-INF, missing BANDWIDTH attribute", logging.Fields{"tag": line.TagValue})
				continue
			}

			if videoAdp == nil {
				videoAdp = &AdaptationSet{StreamType: StreamTypeVideo}
				period.AdaptationSets = append(period.AdaptationSets, videoAdp)
			}

			rep := &Representation{
				Timescale:         DefaultTimescale,
				CurrentSegmentNum: SegmentNoNumber,
				PSSHSetPos:        PSSHSetPosDefault,
				Bandwidth:         atoiSafe(bandwidth),
			}
			if codecs, ok := attribs["CODECS"]; ok {
				rep.Codecs = append(rep.Codecs, codecs)
			} else {
				rep.Codecs = append(rep.Codecs, "h264")
			}

			if res, ok := attribs["RESOLUTION"]; ok {
				rep.Width, rep.Height = ParseResolution(res)
			}

			if audioGroup, ok := attribs["AUDIO"]; ok {
				group, exists := groups[audioGroup]
				if !exists {
					group = &ExtGroup{}
					groups[audioGroup] = group
					groupOrder = append(groupOrder, audioGroup)
				}
				group.setCodecs(audioCodecFromCodecsAttr(attribs["CODECS"]))
			} else {
				period.IncludedStreamMask |= 1 << uint(StreamTypeAudio)
				createDummyAudio = true
			}

			if fr, ok := attribs["FRAME-RATE"]; ok {
				frameRate := atofSafe(fr)
				if frameRate == 0 {
					frameRate = 60.0
				}
				rep.FrameRate = uint32(frameRate * 1000)
				rep.FrameRateScale = 1000
			}

			if i+1 < len(lines) && lines[i+1].IsURI {
				i++
				sourceURL := resolveURI(baseURL, lines[i].Raw)

				dup := false
				for _, existing := range videoAdp.Representations {
					if existing.SourceURL == sourceURL {
						dup = true
						break
					}
				}
				if !dup {
					rep.SourceURL = sourceURL
					videoAdp.Representations = append(videoAdp.Representations, rep)
				}
			}

		case "#EXTINF":
			// Not a multi-bitrate playlist: the master URL itself is the
			// single rendition's media playlist.
			adp := &AdaptationSet{StreamType: StreamTypeVideo}
			rep := &Representation{
				Timescale:         DefaultTimescale,
				CurrentSegmentNum: SegmentNoNumber,
				PSSHSetPos:        PSSHSetPosDefault,
				SourceURL:         manifestURL,
			}
			adp.Representations = append(adp.Representations, rep)
			period.AdaptationSets = append(period.AdaptationSets, adp)

			period.IncludedStreamMask |= 1 << uint(StreamTypeAudio)
			createDummyAudio = true
			i = len(lines)

		case "#EXT-X-SESSION-KEY":
			attribs := ParseAttributes(line.TagValue)
			res := processEncryption(baseURL, attribs)
			switch res.Type {
			case EncryptionTypeNotSupported:
				return nil, NewStreamError(manifestURL, ErrCodeUnsupportedEncryption,
					"unsupported encryption keyformat in EXT-X-SESSION-KEY", nil)
			case EncryptionTypeUnknown:
				logging.WithFields(logging.Fields{"function": "ParseMaster"}).
					Warn("unknown encryption type in EXT-X-SESSION-KEY")
			}
			// Preparing DRM ahead of loading the child playlist isn't useful
			// to a serial parse workflow, so EXT-X-SESSION-KEY is classify-only.
		}
	}

	if createDummyAudio {
		dummy := &AdaptationSet{
			StreamType: StreamTypeAudio,
			Container:  ContainerMP4,
			Language:   "unk",
		}
		codec := "aac"
		if len(period.AdaptationSets) > 0 && len(period.AdaptationSets[0].Representations) > 0 {
			codec = audioCodecFromRepresentation(period.AdaptationSets[0].Representations[0])
		}
		rep := &Representation{
			Timescale:         DefaultTimescale,
			CurrentSegmentNum: SegmentNoNumber,
			PSSHSetPos:        PSSHSetPosDefault,
			Codecs:            []string{codec},
			Channels:          2,
			IsIncludedStream:  true,
		}
		dummy.Representations = append(dummy.Representations, rep)
		period.AdaptationSets = append(period.AdaptationSets, dummy)
	}

	for _, id := range groupOrder {
		period.AdaptationSets = append(period.AdaptationSets, groups[id].AdaptationSets...)
	}

	return period, nil
}

// audioCodecFromCodecsAttr is a best-effort guess at the audio codec from
// a STREAM-INF's CODECS list (CODECS is optional and not guaranteed
// complete, so this is a heuristic, not ground truth).
func audioCodecFromCodecsAttr(codecs string) string {
	switch {
	case containsFold(codecs, "ec-3"):
		return "ec-3"
	case containsFold(codecs, "ac-3"):
		return "ac-3"
	default:
		return "aac"
	}
}

func audioCodecFromRepresentation(r *Representation) string {
	switch {
	case r.ContainsCodec("ec-3"):
		return "ec-3"
	case r.ContainsCodec("ac-3"):
		return "ac-3"
	default:
		return "aac"
	}
}

func atoiSafeDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return atoiSafe(s)
}

func atofSafe(s string) float64 {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var intPart, fracPart float64
	var fracDiv float64 = 1
	seenDot := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '.' {
			seenDot = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		if seenDot {
			fracDiv *= 10
			fracPart = fracPart*10 + float64(c-'0')
		} else {
			intPart = intPart*10 + float64(c-'0')
		}
	}
	v := intPart + fracPart/fracDiv
	if neg {
		return -v
	}
	return v
}
