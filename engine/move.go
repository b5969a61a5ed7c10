// move.go implements the packed move encoding and move parsing.

package engine

import "fmt"

// MoveFlags encodes the kind of a move in the top nibble of a Move.
type MoveFlags uint16

const (
	QuietMove MoveFlags = iota
	DoublePush
	CastleKingSide
	CastleQueenSide
	Capture
	EnpassantCapture
	_
	_
	PromoKnight
	PromoBishop
	PromoRook
	PromoQueen
	PromoCaptureKnight
	PromoCaptureBishop
	PromoCaptureRook
	PromoCaptureQueen

	flagCaptureBit   MoveFlags = 4
	flagPromotionBit MoveFlags = 8
)

// Move is a move packed into 16 bits:
//
//	0-5:   from square
//	6-11:  to square
//	12-15: flags (see MoveFlags)
type Move uint16

// NullMove is the no-move sentinel.
const NullMove Move = 0

// MakeMove packs from, to and flags into a Move.
func MakeMove(from, to Square, flags MoveFlags) Move {
	return Move(from) | Move(to)<<6 | Move(flags)<<12
}

// MakePromotion packs a promotion (optionally capturing) to fig.
func MakePromotion(from, to Square, fig Figure, capture bool) Move {
	flags := PromoKnight + MoveFlags(fig-Knight)
	if capture {
		flags += flagCaptureBit
	}
	return MakeMove(from, to, flags)
}

// From returns the source square.
func (m Move) From() Square {
	return Square(m & 0x3f)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square(m >> 6 & 0x3f)
}

// Flags returns the move kind.
func (m Move) Flags() MoveFlags {
	return MoveFlags(m >> 12)
}

// IsCapture returns true for captures, including en passant and
// capturing promotions.
func (m Move) IsCapture() bool {
	return m.Flags()&flagCaptureBit != 0
}

// IsPromotion returns true if the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Flags()&flagPromotionBit != 0
}

// PromotionFigure returns the promoted figure.
// Result is undefined if the move is not a promotion.
func (m Move) PromotionFigure() Figure {
	return Knight + Figure(m.Flags()&3)
}

// IsEnpassant returns true for en passant captures.
func (m Move) IsEnpassant() bool {
	return m.Flags() == EnpassantCapture
}

// IsCastle returns true for castling moves.
func (m Move) IsCastle() bool {
	return m.Flags() == CastleKingSide || m.Flags() == CastleQueenSide
}

// IsDoublePush returns true for two-square pawn pushes.
func (m Move) IsDoublePush() bool {
	return m.Flags() == DoublePush
}

// IsQuiet returns true if the move neither captures nor promotes.
func (m Move) IsQuiet() bool {
	return m.Flags()&(flagCaptureBit|flagPromotionBit) == 0
}

// UCI converts a move to UCI format, e.g. "e2e4" or "h7h8q".
func (m Move) UCI() string {
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += figureToSymbol[m.PromotionFigure()]
	}
	return s
}

func (m Move) String() string {
	return m.UCI()
}

var errIllegalMove = fmt.Errorf("move is not legal in this position")

// UCIToMove parses a move in UCI format, e.g. "a2a4" or "h7h8q".
// The move must be legal in the current position, otherwise an
// error is returned and the position is left untouched.
func (pos *Position) UCIToMove(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return NullMove, fmt.Errorf("%q is not a move", s)
	}
	from, err := SquareFromString(s[0:2])
	if err != nil {
		return NullMove, err
	}
	to, err := SquareFromString(s[2:4])
	if err != nil {
		return NullMove, err
	}
	promo := NoFigure
	if len(s) == 5 {
		var ok bool
		if promo, ok = symbolToFigure[s[4]]; !ok {
			return NullMove, fmt.Errorf("unknown promotion %q", s[4])
		}
	}

	for _, m := range pos.LegalMoves() {
		if m.From() != from || m.To() != to {
			continue
		}
		if m.IsPromotion() != (promo != NoFigure) {
			continue
		}
		if m.IsPromotion() && m.PromotionFigure() != promo {
			continue
		}
		return m, nil
	}
	return NullMove, errIllegalMove
}
