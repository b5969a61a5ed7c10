// engine.go implements the search: negamax with alpha-beta pruning,
// quiescence and iterative deepening.

package engine

import "time"

const (
	// checkDepthExtension is how much to extend when a move gives check.
	checkDepthExtension int32 = 1
	// maxCheckPly caps consecutive in-check plies in quiescence so a
	// perpetual check cannot explode the search.
	maxCheckPly int32 = 8
	// deltaPruneMargin is the quiescence futility margin.
	deltaPruneMargin int32 = 200
	// checkpointStep is how often, in nodes, the clock is polled.
	checkpointStep uint64 = 2048
)

// Stats stores statistics about the search.
type Stats struct {
	CacheHit  uint64 // times a position was found in the transposition table
	CacheMiss uint64 // times a position was not found in the transposition table
	Nodes     uint64 // number of nodes searched
	Depth     int    // depth of the last started iteration
	SelDepth  int    // maximum ply reached, including quiescence
}

// CacheHitRatio returns the ratio of transposition table hits over
// the total number of lookups.
func (s *Stats) CacheHitRatio() float32 {
	return float32(s.CacheHit) / float32(s.CacheHit+s.CacheMiss)
}

// IterationInfo is the progress event emitted after each completed
// iteration of the deepening loop. The UCI front-end formats it.
type IterationInfo struct {
	Depth           int
	SelDepth        int
	Score           int32 // centipawns, or a mate score
	BestMove        Move
	PV              []Move
	Nodes           uint64        // total nodes searched so far
	IterationNodes  uint64        // nodes of this iteration only
	Elapsed         time.Duration // since the search started
	HashFull        int           // permille of the table used by this search
	BestMoveChanged bool
	Stability       int     // completed iterations with the same best move
	BranchFactor    float64 // this iteration's nodes over the previous one's
	EBF             float64 // depth-weighted branch factor of recent iterations
}

// Logger consumes search progress.
type Logger interface {
	// BeginSearch signals that a new search started.
	BeginSearch()
	// EndSearch signals the end of the search.
	EndSearch()
	// PrintIteration logs one completed deepening iteration.
	PrintIteration(info IterationInfo)
}

// NulLogger is a logger that does nothing.
type NulLogger struct{}

func (nl *NulLogger) BeginSearch()                 {}
func (nl *NulLogger) EndSearch()                   {}
func (nl *NulLogger) PrintIteration(IterationInfo) {}

// Engine implements the logic to search the best move of a position.
type Engine struct {
	Log      Logger
	Stats    Stats
	Position *Position

	tt      *HashTable
	stack   stack
	pvTable pvTable

	rootPly     int
	timeControl *TimeControl
	stopped     bool
	checkpoint  uint64
	iterations  []IterationInfo
}

// NewEngine creates a new engine to search pos.
// If pos is nil then the starting position is used.
func NewEngine(pos *Position, log Logger) *Engine {
	if log == nil {
		log = &NulLogger{}
	}
	eng := &Engine{
		Log:     log,
		tt:      GlobalHashTable,
		pvTable: newPvTable(),
		stack:   stack{history: new(historyTable)},
	}
	eng.SetPosition(pos)
	return eng
}

// SetPosition sets the current position.
// If pos is nil, the starting position is set.
func (eng *Engine) SetPosition(pos *Position) {
	if pos == nil {
		pos, _ = PositionFromFEN(FENStartPos)
	}
	eng.Position = pos
}

// NewGame clears all state kept across searches: the transposition
// table, the SEE cache, killers and the history heuristic.
func (eng *Engine) NewGame() {
	eng.tt.Clear()
	ClearSEECache()
	eng.stack = stack{history: new(historyTable)}
	eng.pvTable = newPvTable()
}

// Score evaluates the current position from the side to move's
// point of view.
func (eng *Engine) Score() int32 {
	return Evaluate(eng.Position)
}

// ply returns the ply from the root of the search.
func (eng *Engine) ply() int32 {
	return int32(eng.Position.Ply() - eng.rootPly)
}

// poll checks the clock and the node limit every checkpointStep nodes.
func (eng *Engine) poll() {
	if eng.Stats.Nodes < eng.checkpoint {
		return
	}
	eng.checkpoint = eng.Stats.Nodes + checkpointStep
	if eng.timeControl.Stopped() {
		eng.stopped = true
	}
	if limit := eng.timeControl.NodeLimit(); limit > 0 && eng.Stats.Nodes >= limit {
		eng.stopped = true
	}
}

// endPosition returns the score and true if the position is a draw by
// rule. Draws are checked before anything else at every node so a
// cached mate can never override a repetition. At the root repetitions
// are tolerated so a move is still produced.
func (eng *Engine) endPosition() (int32, bool) {
	pos := eng.Position
	if r := pos.RepetitionCount(); (eng.ply() > 0 && r >= 2) || r >= 3 {
		return DrawScore, true
	}
	if pos.FiftyMoveRule() {
		return DrawScore, true
	}
	if pos.InsufficientMaterial() {
		return DrawScore, true
	}
	return 0, false
}

// staticEvalForTT clamps the static eval into the table's eval field,
// EvalNone when the side to move is in check.
func (eng *Engine) staticEvalForTT(inCheck bool) int16 {
	if inCheck {
		return EvalNone
	}
	return int16(min(max(eng.Score(), -30000), 30000))
}

// updateTT stores score for the current position. The bound follows
// from the window: exact if alpha was raised, otherwise a bound.
func (eng *Engine) updateTT(α, β, score int32, depth int32, move Move, eval int16) {
	bound := BoundExact
	if score <= α {
		bound = BoundUpper
	} else if score >= β {
		bound = BoundLower
	}
	eng.tt.Put(eng.Position.Zobrist(), move, score, eval, int(depth), int(eng.ply()), bound)
}

// searchQuiescence resolves the tactical horizon by searching only
// forcing moves until the position is quiet.
//
// While in check all evasions are searched and there is no stand pat;
// checkPly caps a perpetual sequence. Otherwise only captures and
// queen promotions that don't lose material are tried.
func (eng *Engine) searchQuiescence(α, β, checkPly int32) int32 {
	eng.Stats.Nodes++
	eng.poll()
	if eng.stopped {
		return α
	}

	if score, done := eng.endPosition(); done {
		return score
	}

	pos := eng.Position
	us := pos.SideToMove()
	ply := eng.ply()
	if int(ply) > eng.Stats.SelDepth {
		eng.Stats.SelDepth = int(ply)
	}
	inCheck := pos.IsChecked(us)

	hash := NullMove
	if r, ok := eng.tt.Probe(pos.Zobrist(), int(ply)); ok {
		eng.Stats.CacheHit++
		hash = r.Move
		if r.Bound == BoundExact ||
			r.Bound == BoundLower && r.Score >= β ||
			r.Bound == BoundUpper && r.Score <= α {
			return r.Score
		}
	} else {
		eng.Stats.CacheMiss++
	}

	if inCheck {
		if checkPly >= maxCheckPly {
			return eng.Score()
		}
		return eng.searchEvasions(α, β, checkPly)
	}

	static := eng.Score()
	if static >= β {
		return static
	}
	localα := α
	if static > localα {
		localα = static
	}
	bestMove, bestScore := NullMove, static

	eng.stack.GenerateMoves(Violent, hash)
	for m := eng.stack.PopMove(); m != NullMove; m = eng.stack.PopMove() {
		// Prune captures losing material.
		if SEESign(pos, m) {
			continue
		}
		// Delta pruning: the capture cannot raise alpha even with a
		// margin on top.
		if static+seeGain(pos, m)+deltaPruneMargin < localα {
			continue
		}

		u := pos.MakeMove(m)
		if pos.IsChecked(us) {
			pos.UnmakeMove(m, u)
			continue
		}
		score := -eng.searchQuiescence(-β, -localα, checkPly)
		pos.UnmakeMove(m, u)

		if score >= β {
			eng.updateTT(α, β, score, 0, m, int16(static))
			return score
		}
		if score > bestScore {
			bestMove, bestScore = m, score
			if score > localα {
				localα = score
			}
		}
	}

	eng.updateTT(α, β, bestScore, 0, bestMove, int16(static))
	return bestScore
}

// searchEvasions searches all legal responses to a check, king moves
// first so escape routes are tried before blocks and captures.
func (eng *Engine) searchEvasions(α, β, checkPly int32) int32 {
	pos := eng.Position
	us := pos.SideToMove()
	ply := eng.ply()

	all := pos.LegalMoves()
	if len(all) == 0 {
		return -MateScore + ply
	}
	moves := make([]Move, 0, len(all))
	for _, m := range all {
		if pos.Get(m.From()).Figure() == King {
			moves = append(moves, m)
		}
	}
	for _, m := range all {
		if pos.Get(m.From()).Figure() != King {
			moves = append(moves, m)
		}
	}

	bestMove, bestScore := NullMove, -InfinityScore
	localα := α
	for _, m := range moves {
		u := pos.MakeMove(m)
		score := -eng.searchQuiescence(-β, -localα, checkPly+1)
		pos.UnmakeMove(m, u)

		if eng.stopped {
			return α
		}
		if score >= β {
			eng.updateTT(α, β, score, 0, m, EvalNone)
			return score
		}
		if score > bestScore {
			bestMove, bestScore = m, score
			if score > localα {
				localα = score
			}
		}
	}

	eng.updateTT(α, β, bestScore, 0, bestMove, EvalNone)
	return bestScore
}

// searchTree implements the negamax framework.
//
// searchTree fails soft, i.e. the score returned can be outside the
// bounds.
//
// α and β represent the lower and upper bounds, depth the remaining
// search depth. The returned score is from the current player's
// point of view.
//
// Invariants:
//
//	If score <= α then the search failed low and the score is an upper bound.
//	else if score >= β then the search failed high and the score is a lower bound.
//	else score is exact.
func (eng *Engine) searchTree(α, β, depth int32) int32 {
	ply := eng.ply()
	pos := eng.Position
	us := pos.SideToMove()
	them := us.Opposite()

	eng.Stats.Nodes++
	eng.poll()
	if eng.stopped {
		return α
	}
	if int(ply) > eng.Stats.SelDepth {
		eng.Stats.SelDepth = int(ply)
	}

	// Draw detection comes first and is never overridden by the
	// transposition table.
	if score, done := eng.endPosition(); done {
		if ply != 0 || score != 0 {
			return score
		}
	}

	// The frontier is resolved by quiescence.
	if depth <= 0 {
		return eng.searchQuiescence(α, β, 0)
	}

	// Check the transposition table.
	hash := NullMove
	if r, ok := eng.tt.Probe(pos.Zobrist(), int(ply)); ok {
		eng.Stats.CacheHit++
		hash = r.Move
		if int32(r.Depth) >= depth && ply > 0 {
			if r.Bound == BoundExact {
				if α < r.Score && r.Score < β {
					eng.pvTable.Put(pos, hash)
				}
				return r.Score
			}
			if r.Bound == BoundLower && r.Score >= β {
				return r.Score
			}
			if r.Bound == BoundUpper && r.Score <= α {
				return r.Score
			}
		}
	} else {
		eng.Stats.CacheMiss++
	}

	sideIsChecked := pos.IsChecked(us)
	static := eng.staticEvalForTT(sideIsChecked)

	bestMove, bestScore := NullMove, -InfinityScore
	localα := α
	numLegal := 0
	var quietsTried [64]Move
	numQuiets := 0

	eng.stack.GenerateMoves(All, hash)
	for m := eng.stack.PopMove(); m != NullMove; m = eng.stack.PopMove() {
		u := pos.MakeMove(m)
		if pos.IsChecked(us) {
			// Drop pseudo-legal moves leaving the king in check.
			pos.UnmakeMove(m, u)
			continue
		}
		numLegal++

		newDepth := depth - 1
		if pos.IsChecked(them) {
			// Extend checks, unless the checking piece simply hangs.
			if !pos.IsAttackedBy(m.To(), them) || pos.IsAttackedBy(m.To(), us) {
				newDepth += checkDepthExtension
			}
		}

		score := -eng.searchTree(-β, -localα, newDepth)
		pos.UnmakeMove(m, u)
		if eng.stopped {
			return α
		}

		if score >= β {
			// Fail high, cut node.
			eng.stack.SaveKiller(m)
			if m.IsQuiet() {
				eng.stack.history.add(m, depth*depth)
				for i := 0; i < numQuiets; i++ {
					eng.stack.history.add(quietsTried[i], -depth)
				}
			}
			eng.updateTT(α, β, score, depth, m, static)
			return score
		}
		if m.IsQuiet() && numQuiets < len(quietsTried) {
			quietsTried[numQuiets] = m
			numQuiets++
		}
		if score > bestScore {
			bestMove, bestScore = m, score
			if score > localα {
				localα = score
			}
		}
	}

	if numLegal == 0 {
		// No legal move: mate or stalemate.
		if sideIsChecked {
			bestScore = -MateScore + ply
		} else {
			bestScore = DrawScore
		}
		eng.updateTT(α, β, bestScore, depth, NullMove, static)
		return bestScore
	}

	eng.updateTT(α, β, bestScore, depth, bestMove, static)
	if α < bestScore && bestScore < β {
		eng.pvTable.Put(pos, bestMove)
	}
	return bestScore
}

// predictIterationTime estimates the cost of the next iteration from
// the last one's elapsed time and the weighted branching factor.
func (eng *Engine) predictIterationTime() time.Duration {
	n := len(eng.iterations)
	if n == 0 {
		return 0
	}
	last := eng.iterations[n-1]
	ebf := last.EBF
	if ebf <= 1 {
		ebf = 2
	}
	var prevElapsed time.Duration
	if n >= 2 {
		prevElapsed = eng.iterations[n-2].Elapsed
	}
	return time.Duration(float64(last.Elapsed-prevElapsed) * ebf)
}

// ebf computes the weighted branching factor over the last up-to-four
// iterations, weights proportional to depth.
func (eng *Engine) ebf() float64 {
	var num, den float64
	n := len(eng.iterations)
	for i := max(0, n-4); i < n; i++ {
		it := eng.iterations[i]
		if it.BranchFactor <= 0 {
			continue
		}
		num += it.BranchFactor * float64(it.Depth)
		den += float64(it.Depth)
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Play searches the current position under tc, which must already be
// started.
//
// Returns the principal variation: moves[0] is the best move found,
// moves[1], when available, is the expected reply to ponder on. For a
// position with legal moves the variation is never empty; if the
// search is stopped before the first iteration completes, the first
// legal move is returned.
func (eng *Engine) Play(tc *TimeControl) []Move {
	eng.Log.BeginSearch()
	defer eng.Log.EndSearch()

	eng.Stats = Stats{}
	eng.rootPly = eng.Position.Ply()
	eng.timeControl = tc
	eng.stopped = false
	eng.checkpoint = checkpointStep
	eng.stack.Reset(eng.Position)
	eng.iterations = eng.iterations[:0]
	eng.tt.NewSearch()
	AgeSEECache()

	var pv []Move
	score := int32(0)
	for depth := 1; depth <= tc.MaxDepth(); depth++ {
		if !tc.ShouldStartIteration(depth, eng.predictIterationTime()) {
			break
		}

		nodesBefore := eng.Stats.Nodes
		eng.Stats.Depth = depth
		score = eng.searchAspirated(int32(depth), score)

		if eng.stopped {
			// The interrupted iteration cannot be trusted; keep the
			// last completed one.
			break
		}

		info := IterationInfo{
			Depth:          depth,
			SelDepth:       eng.Stats.SelDepth,
			Score:          score,
			Nodes:          eng.Stats.Nodes,
			IterationNodes: eng.Stats.Nodes - nodesBefore,
			Elapsed:        tc.Elapsed(),
			HashFull:       eng.tt.Hashfull(),
		}
		if pv = eng.pvTable.Get(eng.Position); len(pv) > 0 {
			info.BestMove = pv[0]
			info.PV = pv
		}
		if n := len(eng.iterations); n > 0 {
			prev := eng.iterations[n-1]
			info.BestMoveChanged = info.BestMove != prev.BestMove
			if info.BestMoveChanged {
				info.Stability = 0
			} else {
				info.Stability = prev.Stability + 1
			}
			if prev.IterationNodes > 0 {
				info.BranchFactor = float64(info.IterationNodes) / float64(prev.IterationNodes)
			}
		}
		eng.iterations = append(eng.iterations, info)
		last := &eng.iterations[len(eng.iterations)-1]
		last.EBF = eng.ebf()
		eng.Log.PrintIteration(*last)

		if IsMateScore(score) {
			break
		}
	}

	if len(pv) == 0 {
		if moves := eng.Position.LegalMoves(); len(moves) > 0 {
			pv = moves[:1]
		}
	}
	return pv
}
