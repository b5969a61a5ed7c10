package engine

import (
	"math/rand"
	"testing"
)

var (
	testBoard1 = "r3k2r/3ppp2/1BB3B1/pp2P1pp/PP4PP/5b2/3PPP2/R3K2R w KQkq - 0 1"
	testBoard2 = "3k4/8/8/p1P2p2/PpP1pP2/pPPpP3/2P2pp1/3K3R w - - 0 1"
	testBoard3 = "r2qkbnr/ppp2ppp/2np4/4pb2/3PP3/5N2/PPP2PPP/RNBQKB1R w KQkq - 0 1"
)

// testEngine simplifies move tests.
type testEngine struct {
	T     *testing.T
	Pos   *Position
	moves []Move
	undos []Undo
}

// Move does a move in UCI format (e.g. a1h8).
func (te *testEngine) Move(m string) {
	move, err := te.Pos.UCIToMove(m)
	if err != nil {
		te.T.Fatalf("cannot play %s: %v", m, err)
	}
	te.moves = append(te.moves, move)
	te.undos = append(te.undos, te.Pos.MakeMove(move))
	if err := te.Pos.Verify(); err != nil {
		te.T.Fatalf("position corrupt after %s: %v", m, err)
	}
}

func (te *testEngine) Undo() {
	l := len(te.moves) - 1
	te.Pos.UnmakeMove(te.moves[l], te.undos[l])
	te.moves = te.moves[:l]
	te.undos = te.undos[:l]
	if err := te.Pos.Verify(); err != nil {
		te.T.Fatalf("position corrupt after undo: %v", err)
	}
}

func (te *testEngine) Piece(sq Square, expected Piece) {
	if got := te.Pos.Get(sq); got != expected {
		te.T.Errorf("expected %c at %v, got %c", pieceToSymbol[expected], sq, pieceToSymbol[got])
	}
}

func mustFromFEN(t *testing.T, fen string) *Position {
	t.Helper()
	pos, err := PositionFromFEN(fen)
	if err != nil {
		t.Fatalf("cannot parse %q: %v", fen, err)
	}
	return pos
}

func TestPutGetRemove(t *testing.T) {
	pos := NewPosition()

	if pos.Get(SquareA3) != NoPiece {
		t.Errorf("expected empty square")
	}
	pos.put(SquareA3, WhitePawn)
	if pos.Get(SquareA3) != WhitePawn {
		t.Errorf("expected white pawn")
	}
	if !pos.ByPiece(White, Pawn).Has(SquareA3) {
		t.Errorf("bitboard disagrees with mailbox")
	}
	pos.remove(SquareA3, WhitePawn)
	if pos.Get(SquareA3) != NoPiece || pos.Occupied() != BbEmpty {
		t.Errorf("expected empty board")
	}
	if pos.zobrist != 0 || pos.pawnZobrist != 0 {
		t.Errorf("hashes did not return to zero")
	}
	if pos.material[White] != 0 || (pos.pst != Accum{}) {
		t.Errorf("material or pst did not return to zero")
	}
}

func TestMakeUnmakeRoundTrip(t *testing.T) {
	for _, fen := range []string{FENStartPos, testBoard1, testBoard2, testBoard3} {
		pos := mustFromFEN(t, fen)
		before := *pos

		for _, m := range pos.LegalMoves() {
			u := pos.MakeMove(m)
			if err := pos.Verify(); err != nil {
				t.Fatalf("%s: position corrupt after %v: %v", fen, m, err)
			}
			pos.UnmakeMove(m, u)
			if err := pos.Verify(); err != nil {
				t.Fatalf("%s: position corrupt after undoing %v: %v", fen, m, err)
			}
			if pos.zobrist != before.zobrist ||
				pos.pawnZobrist != before.pawnZobrist ||
				pos.castling != before.castling ||
				pos.epSquare != before.epSquare ||
				pos.halfMoveClock != before.halfMoveClock ||
				pos.material != before.material ||
				pos.pst != before.pst ||
				pos.board != before.board {
				t.Fatalf("%s: %v did not round-trip", fen, m)
			}
		}
	}
}

// TestRandomGames plays random legal games and verifies every invariant
// after each make and unmake.
func TestRandomGames(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for game := 0; game < 20; game++ {
		pos := mustFromFEN(t, FENStartPos)
		te := &testEngine{T: t, Pos: pos}

		for ply := 0; ply < 60; ply++ {
			moves := pos.LegalMoves()
			if len(moves) == 0 {
				break
			}
			m := moves[r.Intn(len(moves))]
			te.moves = append(te.moves, m)
			te.undos = append(te.undos, pos.MakeMove(m))
			if err := pos.Verify(); err != nil {
				t.Fatalf("game %d ply %d: %v", game, ply, err)
			}
		}
		for len(te.moves) > 0 {
			te.Undo()
		}
		if pos.String() != FENStartPos {
			t.Fatalf("game %d did not unwind to the starting position", game)
		}
	}
}

func TestCastlingRightsAreOneWay(t *testing.T) {
	pos := mustFromFEN(t, testBoard1)
	te := &testEngine{T: t, Pos: pos}

	te.Move("e1f1") // white loses both rights
	if c := pos.CastlingRights() & (WhiteOO | WhiteOOO); c != NoCastle {
		t.Errorf("expected white rights gone, got %v", c)
	}
	te.Move("h8g8") // black loses king side
	if c := pos.CastlingRights(); c != BlackOOO {
		t.Errorf("expected only black queen side, got %v", c)
	}
	te.Undo()
	te.Undo()
	if c := pos.CastlingRights(); c != AnyCastle {
		t.Errorf("expected all rights restored, got %v", c)
	}
}

func TestCastlingMovesRook(t *testing.T) {
	pos := mustFromFEN(t, testBoard1)
	te := &testEngine{T: t, Pos: pos}

	te.Move("e1g1")
	te.Piece(SquareF1, WhiteRook)
	te.Piece(SquareG1, WhiteKing)
	te.Piece(SquareH1, NoPiece)
	te.Move("e8g8")
	te.Piece(SquareF8, BlackRook)
	te.Piece(SquareG8, BlackKing)
	te.Undo()
	te.Undo()
	te.Piece(SquareE1, WhiteKing)
	te.Piece(SquareH1, WhiteRook)
	te.Piece(SquareE8, BlackKing)
	te.Piece(SquareH8, BlackRook)
}

func TestEnpassantRecordedOnlyWhenCapturable(t *testing.T) {
	// After e2e4 no black pawn can capture on e3, so no en passant
	// square is recorded and the hash matches the plain position.
	pos := mustFromFEN(t, FENStartPos)
	m, _ := pos.UCIToMove("e2e4")
	pos.MakeMove(m)
	if pos.EnpassantSquare() != SquareA1 {
		t.Errorf("expected no en passant square after e2e4")
	}
	want := mustFromFEN(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1")
	if pos.Zobrist() != want.Zobrist() {
		t.Errorf("zobrist differs from the en-passant-free position")
	}

	// With a black pawn on d4 the push e2e4 is capturable.
	pos = mustFromFEN(t, "rnbqkbnr/ppp1pppp/8/8/3p4/8/PPPPPPPP/RNBQKBNR w KQkq - 0 2")
	m, _ = pos.UCIToMove("e2e4")
	pos.MakeMove(m)
	if pos.EnpassantSquare() != SquareE3 {
		t.Errorf("expected en passant square e3, got %v", pos.EnpassantSquare())
	}
}

func TestEnpassantCaptureRemovesThePushedPawn(t *testing.T) {
	pos := mustFromFEN(t, "rnbqkbnr/ppp1pppp/8/8/3p4/8/PPPPPPPP/RNBQKBNR w KQkq - 0 2")
	te := &testEngine{T: t, Pos: pos}
	te.Move("e2e4")
	te.Move("d4e3")
	te.Piece(SquareE4, NoPiece)
	te.Piece(SquareE3, BlackPawn)
	te.Undo()
	te.Piece(SquareE4, WhitePawn)
	te.Piece(SquareD4, BlackPawn)
}

// TestTranspositionIdenticalState checks that a position reached by
// moves and the same position loaded from FEN agree on every
// incremental quantity.
func TestTranspositionIdenticalState(t *testing.T) {
	pos := mustFromFEN(t, FENStartPos)
	te := &testEngine{T: t, Pos: pos}
	for _, m := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4"} {
		te.Move(m)
	}

	want := mustFromFEN(t, "r1bqkbnr/1ppp1ppp/p1n5/4p3/B3P3/5N2/PPPP1PPP/RNBQK2R b KQkq - 1 4")
	if pos.Zobrist() != want.Zobrist() {
		t.Errorf("zobrist %x != %x", pos.Zobrist(), want.Zobrist())
	}
	if pos.PawnZobrist() != want.PawnZobrist() {
		t.Errorf("pawn zobrist differs")
	}
	if pos.material != want.material {
		t.Errorf("material %v != %v", pos.material, want.material)
	}
	if pos.pst != want.pst {
		t.Errorf("pst %+v != %+v", pos.pst, want.pst)
	}
	if pos.String() != want.String() {
		t.Errorf("fen %s != %s", pos.String(), want.String())
	}
}

func TestRepetitionCount(t *testing.T) {
	pos := mustFromFEN(t, testBoard3)
	te := &testEngine{T: t, Pos: pos}

	if c := pos.RepetitionCount(); c != 1 {
		t.Errorf("expected count 1, got %d", c)
	}
	for _, m := range []string{"b1c3", "g8f6", "c3b1", "f6g8"} {
		te.Move(m)
	}
	if c := pos.RepetitionCount(); c != 2 {
		t.Errorf("expected count 2 after one shuffle, got %d", c)
	}
	for _, m := range []string{"b1c3", "g8f6", "c3b1", "f6g8"} {
		te.Move(m)
	}
	if c := pos.RepetitionCount(); c != 3 {
		t.Errorf("expected count 3 after two shuffles, got %d", c)
	}

	// A pawn move is irreversible and resets the window.
	te.Move("e4e5")
	if c := pos.RepetitionCount(); c != 1 {
		t.Errorf("expected count 1 after a pawn move, got %d", c)
	}
}

func TestInsufficientMaterial(t *testing.T) {
	for _, test := range []struct {
		fen  string
		want bool
	}{
		{"8/8/4k3/8/8/3K4/8/8 w - - 0 1", true},     // K vs K
		{"8/8/4k3/8/8/3KN3/8/8 w - - 0 1", true},    // K+N vs K
		{"8/8/4k3/8/8/3KB3/8/8 w - - 0 1", true},    // K+B vs K
		{"8/8/2b1k3/8/8/3KB3/8/8 w - - 0 1", false}, // opposite color complexes
		{"8/8/1b2k3/8/8/3KB3/8/8 w - - 0 1", true},  // same color complexes
		{"8/8/4k3/8/8/3KP3/8/8 w - - 0 1", false},   // pawn can promote
		{"8/8/4k3/8/8/3KR3/8/8 w - - 0 1", false},   // rook mates
		{"8/8/2n1k3/8/8/3KN3/8/8 w - - 0 1", false}, // two knights
	} {
		pos := mustFromFEN(t, test.fen)
		if got := pos.InsufficientMaterial(); got != test.want {
			t.Errorf("%s: InsufficientMaterial() = %v, want %v", test.fen, got, test.want)
		}
	}
}

func TestFiftyMoveRule(t *testing.T) {
	pos := mustFromFEN(t, "8/8/4k3/8/8/3KR3/8/8 w - - 99 80")
	if pos.FiftyMoveRule() {
		t.Errorf("clock at 99 is not yet a draw")
	}
	m, _ := pos.UCIToMove("d3c3")
	pos.MakeMove(m)
	if !pos.FiftyMoveRule() {
		t.Errorf("clock at 100 is a draw")
	}
}

func TestIsAttackedBy(t *testing.T) {
	pos := mustFromFEN(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	for _, test := range []struct {
		sq   Square
		col  Color
		want bool
	}{
		{SquareE6, White, true}, // pawn d5 takes e6
		{SquareD5, Black, true}, // pawn e6 takes d5
		{SquareF7, White, true}, // knight e5
		{SquareA8, Black, true}, // knight b6 defends the rook
		{SquareH4, White, false},
		{SquareG2, Black, true}, // pawn h3
	} {
		if got := pos.IsAttackedBy(test.sq, test.col); got != test.want {
			t.Errorf("IsAttackedBy(%v, %v) = %v, want %v", test.sq, test.col, got, test.want)
		}
	}
}
