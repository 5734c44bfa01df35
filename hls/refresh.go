package hls

import (
	"context"
	"time"
)

// RefreshSegments re-fetches rep's child playlist when the stream is a
// live (refreshable) playlist, preserving the consumer's segment cursor.
// Called each time a consumer is about to switch to a new segment and
// needs the timeline topped up.
func (t *Tree) RefreshSegments(ctx context.Context, adp *AdaptationSet, rep *Representation) error {
	t.mu.Lock()
	refresh := t.refreshPlaylist
	included := rep.IsIncludedStream
	period := t.currentPeriodLocked()
	t.mu.Unlock()

	if !refresh || included {
		return nil
	}

	_, err := t.prepareRepresentation(ctx, period, adp, rep, true)
	return err
}

// RefreshLiveSegments re-fetches every enabled Representation's child
// playlist in the current Period. It is the body of the background
// live-refresh loop; a caller drives it on a timer.
func (t *Tree) RefreshLiveSegments(ctx context.Context) {
	t.mu.Lock()
	t.lastUpdated = time.Now()
	if !t.refreshPlaylist {
		t.mu.Unlock()
		return
	}

	type item struct {
		adp *AdaptationSet
		rep *Representation
	}
	var work []item
	period := t.currentPeriodLocked()
	if period != nil {
		for _, adp := range period.AdaptationSets {
			for _, rep := range adp.Representations {
				if rep.IsIncludedStream {
					continue
				}
				work = append(work, item{adp, rep})
			}
		}
	}
	t.mu.Unlock()

	for _, w := range work {
		t.mu.Lock()
		cur := t.currentPeriodLocked()
		t.mu.Unlock()
		t.prepareRepresentation(ctx, cur, w.adp, w.rep, true)
	}
}

// UpdateInterval returns the current recommended delay between live
// refreshes, narrowed from the configured ceiling by the playlist's own
// EXT-X-TARGETDURATION.
func (t *Tree) UpdateInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	ms := t.updateIntervalMS
	if ms < t.config.Refresh.MinUpdateIntervalMS {
		ms = t.config.Refresh.MinUpdateIntervalMS
	}
	return time.Duration(ms) * time.Millisecond
}

// IsLive reports whether the playlist is still expected to grow (no
// EXT-X-ENDLIST seen and not declared PLAYLIST-TYPE=VOD).
func (t *Tree) IsLive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refreshPlaylist
}

// RunRefreshLoop blocks, calling RefreshLiveSegments on UpdateInterval
// cadence until ctx is cancelled or the playlist stops being live.
// Neither the tree nor the engine starts it; the caller runs it in its
// own goroutine and so controls the refresh loop's lifetime.
func (t *Tree) RunRefreshLoop(ctx context.Context) {
	for {
		if !t.IsLive() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.UpdateInterval()):
			t.RefreshLiveSegments(ctx)
		}
	}
}
