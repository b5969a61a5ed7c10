// see.go implements static exchange evaluation.
//
// https://www.chessprogramming.org/Static_Exchange_Evaluation
// https://www.chessprogramming.org/SEE_-_The_Swap_Algorithm

package engine

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// seeValue is the piece value table of the exchange evaluator. The
// values intentionally differ from the evaluation's material weights;
// they are a separate tuning target for capture ordering. The king
// never gets captured but participates as a defender.
var seeValue = [FigureArraySize]int32{0, 100, 320, 330, 500, 950, 10000}

const maxSEEDepth = 32

// seeGain returns the immediate material change of m: the value of the
// captured piece plus the promotion delta.
func seeGain(pos *Position, m Move) int32 {
	var score int32
	if m.IsEnpassant() {
		score = seeValue[Pawn]
	} else if m.IsCapture() {
		score = seeValue[pos.Get(m.To()).Figure()]
	}
	if m.IsPromotion() {
		score += seeValue[m.PromotionFigure()] - seeValue[Pawn]
	}
	return score
}

// SEE estimates the net material gain of m, assuming both sides keep
// capturing on m's destination square with their least valuable
// attacker until no attackers remain or one side declines. Non-capture
// non-promotion moves score 0.
func SEE(pos *Position, m Move) int32 {
	if m.IsQuiet() {
		return 0
	}
	key := pos.zobrist ^ mixMove(m)
	if v, ok := seeCache.probe(key); ok {
		return v
	}
	v := computeSEE(pos, m)
	seeCache.store(key, v)
	return v
}

// SEESign returns true if SEE(m) is strictly negative, i.e. m is a
// losing exchange.
func SEESign(pos *Position, m Move) bool {
	if m.IsCapture() && !m.IsEnpassant() &&
		pos.Get(m.From()).Figure() <= pos.Get(m.To()).Figure() {
		// Even if the moving piece gets captured back the exchange
		// cannot lose material.
		return false
	}
	return SEE(pos, m) < 0
}

// SEEGE returns true if SEE(m) >= threshold. Usable as a pruning test.
func SEEGE(pos *Position, m Move, threshold int32) bool {
	return SEE(pos, m) >= threshold
}

func computeSEE(pos *Position, m Move) int32 {
	us := pos.sideToMove
	to := m.To()
	occ := pos.Occupied()

	var gains [maxSEEDepth]int32
	gains[0] = seeGain(pos, m)

	// Play the move on the occupancy: the mover leaves its square, the
	// en passant victim leaves its own square, not the target square.
	occ &^= m.From().Bitboard()
	if m.IsEnpassant() {
		occ &^= enpassantCaptureSquare(m).Bitboard()
	}

	// Value of the piece now sitting on the target square.
	target := seeValue[pos.Get(m.From()).Figure()]
	if m.IsPromotion() {
		target = seeValue[m.PromotionFigure()]
	}

	side := us.Opposite()
	attackers := pos.attackersTo(to, occ) & occ
	d := 0

	for d+1 < maxSEEDepth {
		ours := attackers & pos.byColor[side]
		if ours == 0 {
			break
		}

		// Pick the least valuable attacker.
		var fig Figure
		var att Bitboard
		for fig = Pawn; fig <= King; fig++ {
			if att = ours & pos.byFigure[fig]; att != 0 {
				break
			}
		}
		if fig == King && attackers&pos.byColor[side.Opposite()] != 0 {
			// The king cannot walk into the defenders.
			break
		}

		d++
		gains[d] = target - gains[d-1]
		target = seeValue[fig]

		// Remove the attacker and recompute the sliding attacks so
		// x-ray attackers behind it join the exchange.
		occ &^= att.LSB()
		attackers = pos.attackersTo(to, occ) & occ
		side = side.Opposite()
	}

	// Collapse the gains from the tail: each side may decline to
	// continue the exchange.
	for i := d; i > 0; i-- {
		gains[i-1] = -max(-gains[i-1], gains[i])
	}
	return gains[0]
}

// The SEE cache is purely advisory: correctness does not depend on it
// and it may be cleared at any time.

const seeCacheSize = 1 << 14

type seeCacheEntry struct {
	key   uint64
	value int32
	age   uint8
}

type seeCacheTable struct {
	entries [seeCacheSize]seeCacheEntry
	age     uint8
}

var seeCache seeCacheTable

// mixMove spreads the 16 move bits over the key space.
func mixMove(m Move) uint64 {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(m))
	return xxhash.Sum64(b[:])
}

func (t *seeCacheTable) probe(key uint64) (int32, bool) {
	e := &t.entries[key&(seeCacheSize-1)]
	if e.key == key && e.age == t.age {
		return e.value, true
	}
	return 0, false
}

func (t *seeCacheTable) store(key uint64, value int32) {
	t.entries[key&(seeCacheSize-1)] = seeCacheEntry{key: key, value: value, age: t.age}
}

// AgeSEECache marks all cached entries stale. Called once per search.
func AgeSEECache() {
	seeCache.age++
}

// ClearSEECache drops all cached entries.
func ClearSEECache() {
	seeCache = seeCacheTable{}
}
