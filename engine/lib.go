// Package engine implements the board, move generation and position
// searching for the SeaJay chess engine.
//
// The package can be used as a general library for chess tool writing and
// provides the core functionality of the engine.
//
// Position (basic.go, position.go) uses:
//
//   - Bitboards for representation - https://www.chessprogramming.org/Bitboards
//   - Magic bitboards for sliding move generation - https://www.chessprogramming.org/Magic_Bitboards
//
// Search (engine.go) features implemented are:
//
//   - Aspiration windows - https://www.chessprogramming.org/Aspiration_Windows
//   - Check extension - https://www.chessprogramming.org/Check_Extensions
//   - Fail soft - https://www.chessprogramming.org/Fail-Soft
//   - Iterative deepening - https://www.chessprogramming.org/Iterative_Deepening
//   - Killer move heuristic - https://www.chessprogramming.org/Killer_Heuristic
//   - Negamax framework - https://www.chessprogramming.org/Alpha-Beta#Negamax_Framework
//   - Quiescence search - https://www.chessprogramming.org/Quiescence_Search
//   - Static exchange evaluation - https://www.chessprogramming.org/Static_Exchange_Evaluation
//   - Transposition table with 4-way clusters - https://www.chessprogramming.org/Transposition_Table
//   - Zobrist hashing - https://www.chessprogramming.org/Zobrist_Hashing
package engine

import "github.com/op/go-logging"

var log = logging.MustGetLogger("engine")
