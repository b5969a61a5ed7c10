// aspiration.go implements the aspiration windows of the iterative
// deepening driver.

package engine

const (
	// aspirationInitialDelta is the initial half-width in centipawns.
	aspirationInitialDelta int32 = 16
	// aspirationMinDepth disables the windows at shallow depths.
	aspirationMinDepth int32 = 4
	// aspirationDepthAdjustment widens the window slightly at higher depths.
	aspirationDepthAdjustment int32 = 2
	// aspirationMaxAttempts re-searches before giving up on a window.
	aspirationMaxAttempts = 5
)

// aspirationWindow is the [alpha, beta) window of one root search.
type aspirationWindow struct {
	alpha, beta int32
	delta       int32
	attempts    int
}

// newAspirationWindow builds the initial window around the previous
// iteration's score. Shallow depths get an infinite window.
func newAspirationWindow(prev, depth int32) aspirationWindow {
	w := aspirationWindow{alpha: -InfinityScore, beta: InfinityScore}
	if depth < aspirationMinDepth {
		return w
	}
	w.delta = aspirationInitialDelta + depth/aspirationDepthAdjustment
	w.alpha = max(prev-w.delta, -InfinityScore)
	w.beta = min(prev+w.delta, InfinityScore)
	return w
}

// widen grows the window after a failure. The failing side is pushed
// delta past the score, the other side stays close so improvements are
// still caught. Growth is adaptive: exponential for the first two
// failures, then times one and a half. After too many attempts the
// window becomes infinite.
func (w *aspirationWindow) widen(score int32, failedHigh bool) {
	w.attempts++
	if w.attempts >= aspirationMaxAttempts {
		w.alpha, w.beta = -InfinityScore, InfinityScore
		return
	}

	if w.attempts <= 2 {
		w.delta <<= uint(w.attempts)
	} else {
		w.delta += w.delta / 2
	}

	if failedHigh {
		w.beta = min(score+w.delta, InfinityScore)
		w.alpha = max(score-w.delta/2, -InfinityScore)
	} else {
		w.alpha = max(score-w.delta, -InfinityScore)
		w.beta = min(score+w.delta/2, InfinityScore)
	}
}

// searchAspirated runs the root search at depth inside an aspiration
// window, widening and re-searching on failure.
func (eng *Engine) searchAspirated(depth, estimated int32) int32 {
	w := newAspirationWindow(estimated, depth)
	score := estimated
	for !eng.stopped {
		score = eng.searchTree(w.alpha, w.beta, depth)
		switch {
		case score <= w.alpha:
			w.widen(score, false)
		case score >= w.beta:
			w.widen(score, true)
		default:
			return score
		}
	}
	return score
}
