// zobrist.go contains magic numbers used for Zobrist hashing.
//
// More information on Zobrist hashing can be found in the paper:
// http://research.cs.wisc.edu/techreports/1970/TR88.pdf

package engine

import "math/rand"

var (
	// The zobrist* arrays contain the feature keys the position hash
	// is composed of.

	zobristPiece         [PieceArraySize][SquareArraySize]uint64
	zobristEnpassantFile [8]uint64
	zobristCastle        [CastleArraySize]uint64
	zobristSideToMove    uint64
)

func rand64(r *rand.Rand) uint64 {
	return uint64(r.Int63())<<32 ^ uint64(r.Int63())
}

func init() {
	r := rand.New(rand.NewSource(1))
	for col := ColorMinValue; col <= ColorMaxValue; col++ {
		for fig := FigureMinValue; fig <= FigureMaxValue; fig++ {
			for sq := SquareMinValue; sq <= SquareMaxValue; sq++ {
				zobristPiece[ColorFigure(col, fig)][sq] = rand64(r)
			}
		}
	}
	for f := 0; f < 8; f++ {
		zobristEnpassantFile[f] = rand64(r)
	}
	for i := 1; i < CastleArraySize; i++ {
		zobristCastle[i] = rand64(r)
	}
	zobristSideToMove = rand64(r)
}
