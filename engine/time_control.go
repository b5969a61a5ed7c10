// time_control.go implements time management for the search.

package engine

import (
	"sync/atomic"
	"time"
)

// MaxDepth is the deepest the iterative deepening will go.
const MaxDepth = 64

const (
	// safetyMargin is never spent, so the engine cannot flag.
	safetyMargin = 50 * time.Millisecond
	// Below lowTimeThreshold the allocation collapses to a tiny
	// constant to preserve the safety margin.
	lowTimeThreshold = 250 * time.Millisecond
	lowTimeOptimum   = 25 * time.Millisecond
	// expectedMovesRemaining is assumed in sudden death games.
	expectedMovesRemaining = 30
)

// Limits are the constraints of a single search, as given by the UCI
// go command.
type Limits struct {
	WTime, BTime time.Duration // time left on each clock
	WInc, BInc   time.Duration // increment per move
	MoveTime     time.Duration // search exactly this long
	MovesToGo    int           // moves to the next time control
	Depth        int           // maximum depth
	Nodes        uint64        // maximum nodes
	Infinite     bool          // search until stopped
}

// TimeControl splits the remaining time into an optimum budget the
// search tries to stay within and a maximum it never exceeds.
type TimeControl struct {
	depth    int
	nodes    uint64
	optimum  time.Duration
	maximum  time.Duration
	infinite bool

	start   time.Time
	stopped atomic.Bool
}

// NewTimeControl allocates time for one search over pos under limits.
// Inconsistent limits are clamped to the nearest valid value.
func NewTimeControl(pos *Position, limits Limits) *TimeControl {
	tc := &TimeControl{depth: MaxDepth, nodes: limits.Nodes, infinite: true}
	if limits.Depth != 0 {
		tc.depth = min(max(limits.Depth, 1), MaxDepth)
	}
	if limits.Infinite {
		return tc
	}

	if limits.MoveTime > 0 {
		tc.infinite = false
		tc.optimum = limits.MoveTime
		tc.maximum = limits.MoveTime
		return tc
	}

	ourTime, ourInc := limits.WTime, limits.WInc
	if pos.SideToMove() == Black {
		ourTime, ourInc = limits.BTime, limits.BInc
	}
	if ourTime <= 0 {
		return tc
	}

	tc.infinite = false
	if limits.MovesToGo > 0 {
		tc.optimum = ourTime/time.Duration(limits.MovesToGo) + ourInc
	} else {
		tc.optimum = ourTime/expectedMovesRemaining + ourInc*3/4
	}
	if ourTime < lowTimeThreshold {
		tc.optimum = min(lowTimeOptimum, ourTime/4)
	}
	tc.maximum = min(3*tc.optimum, ourTime-safetyMargin)
	tc.maximum = max(tc.maximum, time.Millisecond)
	tc.optimum = min(tc.optimum, tc.maximum)
	return tc
}

// NewFixedDepthTimeControl returns a time control limited to depth only.
func NewFixedDepthTimeControl(depth int) *TimeControl {
	return &TimeControl{depth: min(max(depth, 1), MaxDepth), infinite: true}
}

// Start starts the clock. Should be called as soon as possible after
// the go command arrives.
func (tc *TimeControl) Start() {
	tc.start = time.Now()
}

// Elapsed returns the time since Start.
func (tc *TimeControl) Elapsed() time.Duration {
	return time.Since(tc.start)
}

// MaxDepth returns the depth limit.
func (tc *TimeControl) MaxDepth() int {
	return tc.depth
}

// NodeLimit returns the node limit, 0 if unlimited.
func (tc *TimeControl) NodeLimit() uint64 {
	return tc.nodes
}

// Stop requests the search to stop cooperatively.
func (tc *TimeControl) Stop() {
	tc.stopped.Store(true)
}

// Stopped returns true if the search must abort now: either a stop was
// requested or the hard time budget ran out. Polled from the search
// every few thousand nodes.
func (tc *TimeControl) Stopped() bool {
	if tc.stopped.Load() {
		return true
	}
	if !tc.infinite && tc.Elapsed() > tc.maximum {
		tc.stopped.Store(true)
		return true
	}
	return false
}

// ShouldStartIteration decides, between iterations, whether another
// depth fits the budget. predicted is the expected cost of the next
// iteration. The first depth is always searched so a move can always
// be returned.
func (tc *TimeControl) ShouldStartIteration(depth int, predicted time.Duration) bool {
	if depth > tc.depth {
		return false
	}
	if depth <= 1 {
		return true
	}
	if tc.Stopped() {
		return false
	}
	return tc.infinite || tc.Elapsed()+predicted <= tc.optimum
}
