package hls

// insertPSSHSet interns a candidate PSSHSet into period's table, matching
// an existing entry (skipping the clear-content sentinel at index 0) or
// appending a new one, and bumps its usage count. A match whose usage
// count is currently zero is overwritten with the candidate's fields
// first, so a freshly-reused slot always reflects the latest KID/IV.
func insertPSSHSet(period *Period, candidate PSSHSet) uint16 {
	for i := 1; i < len(period.PSSHSets); i++ {
		if period.PSSHSets[i].equalKey(candidate) {
			if period.PSSHSets[i].UsageCount == 0 {
				usage := period.PSSHSets[i].UsageCount
				period.PSSHSets[i] = candidate
				period.PSSHSets[i].UsageCount = usage
			}
			period.PSSHSets[i].UsageCount++
			return uint16(i)
		}
	}
	period.PSSHSets = append(period.PSSHSets, candidate)
	idx := uint16(len(period.PSSHSets) - 1)
	period.PSSHSets[idx].UsageCount++
	return idx
}

// insertPSSHSetSentinel bumps the usage count of the clear-content
// sentinel slot at index 0, used when a segment carries no PSSHSet of its
// own but still participates in PSSHSet bookkeeping.
func insertPSSHSetSentinel(period *Period) uint16 {
	period.PSSHSets[PSSHSetPosDefault].UsageCount++
	return PSSHSetPosDefault
}

// insertTreePSSHSet builds a candidate PSSHSet from the current
// encryption state and interns it into period, recording the owning
// AdaptationSet's index.
func insertTreePSSHSet(streamType StreamType, period *Period, adpSetID int, pssh, defaultKID string, iv []byte, cryptoMode CryptoMode) uint16 {
	candidate := PSSHSet{
		PSSH:            pssh,
		DefaultKID:      defaultKID,
		IV:              iv,
		StreamType:      streamType,
		AdaptationSetID: adpSetID,
		CryptoMode:      cryptoMode,
	}
	return insertPSSHSet(period, candidate)
}

// bumpPSSHSetUsage increments the usage count of the PSSHSet at pos
// without building a new candidate, used when a segment reuses the
// slot a prior segment under the same EXT-X-KEY already interned.
func bumpPSSHSetUsage(period *Period, pos uint16) {
	if int(pos) < len(period.PSSHSets) {
		period.PSSHSets[pos].UsageCount++
	}
}

// freeSegments releases rep's current segment timeline's hold on its
// PSSHSets before the timeline is replaced, so usage counts reflect only
// segments actually reachable from the tree.
func freeSegments(period *Period, rep *Representation) {
	for _, seg := range rep.Segments {
		if int(seg.PSSHSet) < len(period.PSSHSets) && period.PSSHSets[seg.PSSHSet].UsageCount > 0 {
			period.PSSHSets[seg.PSSHSet].UsageCount--
		}
	}
}

// removePSSHSet drops every Representation across period's AdaptationSets
// that references pos.
func removePSSHSet(period *Period, pos uint16) {
	for _, adp := range period.AdaptationSets {
		kept := adp.Representations[:0]
		for _, r := range adp.Representations {
			if r.PSSHSetPos != pos {
				kept = append(kept, r)
			}
		}
		adp.Representations = kept
	}
}
