// uci.go implements the UCI protocol which is described here:
// http://wbec-ridderkerk.nl/html/UCIProtocol.html

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/namebrandon/seajay/engine"
)

var errQuit = errors.New("quit")

// uciLogger outputs the search progress in uci format.
type uciLogger struct {
	buf     *bytes.Buffer
	printer *message.Printer
}

func newUCILogger() *uciLogger {
	return &uciLogger{
		buf:     &bytes.Buffer{},
		printer: message.NewPrinter(language.English),
	}
}

func (ul *uciLogger) BeginSearch() {
	ul.buf.Reset()
}

func (ul *uciLogger) EndSearch() {
	ul.flush()
}

func (ul *uciLogger) PrintIteration(info engine.IterationInfo) {
	fmt.Fprintf(ul.buf, "info depth %d seldepth %d ", info.Depth, info.SelDepth)

	if engine.IsMateScore(info.Score) {
		fmt.Fprintf(ul.buf, "score mate %d ", engine.MovesToMate(info.Score))
	} else {
		fmt.Fprintf(ul.buf, "score cp %d ", info.Score)
	}

	elapsed := max(info.Elapsed, time.Microsecond)
	nps := info.Nodes * uint64(time.Second) / uint64(elapsed)
	fmt.Fprintf(ul.buf, "nodes %d time %d nps %d hashfull %d",
		info.Nodes, elapsed/time.Millisecond, nps, info.HashFull)

	if len(info.PV) > 0 {
		fmt.Fprintf(ul.buf, " pv")
		for _, m := range info.PV {
			fmt.Fprintf(ul.buf, " %v", m.UCI())
		}
	}
	fmt.Fprintf(ul.buf, "\n")
	ul.flush()

	log.Debugf("depth %d: %s nodes, ebf %.2f, stability %d",
		info.Depth, ul.printer.Sprintf("%d", info.Nodes), info.EBF, info.Stability)
}

// flush flushes the buf to stdout.
func (ul *uciLogger) flush() {
	os.Stdout.Write(ul.buf.Bytes())
	os.Stdout.Sync()
	ul.buf.Reset()
}

// UCI implements the uci protocol.
type UCI struct {
	Engine      *engine.Engine
	timeControl *engine.TimeControl

	// buffer of 1, if empty then the engine is available.
	idle chan struct{}
}

func NewUCI() *UCI {
	return &UCI{
		Engine: engine.NewEngine(nil, newUCILogger()),
		idle:   make(chan struct{}, 1),
	}
}

var reCmd = regexp.MustCompile(`^[[:word:]]+\b`)

func (uci *UCI) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	cmd := reCmd.FindString(line)
	if cmd == "" {
		return fmt.Errorf("invalid command line")
	}

	// These commands do not expect the engine to be idle.
	switch cmd {
	case "isready":
		return uci.isready(line)
	case "quit":
		return errQuit
	case "stop":
		return uci.stop(line)
	case "uci":
		return uci.uci(line)
	}

	// Make sure the engine is idle.
	uci.idle <- struct{}{}
	<-uci.idle

	// These commands expect the engine to be idle.
	switch cmd {
	case "ucinewgame":
		return uci.ucinewgame(line)
	case "position":
		return uci.position(line)
	case "go":
		return uci.go_(line)
	case "setoption":
		return uci.setoption(line)
	default:
		return fmt.Errorf("unhandled command %s", cmd)
	}
}

func (uci *UCI) uci(line string) error {
	fmt.Printf("id name seajay %v\n", buildVersion)
	fmt.Printf("id author The SeaJay Authors\n")
	fmt.Printf("\n")
	fmt.Printf("option name Hash type spin default %v min 1 max 65536\n", engine.DefaultHashTableSizeMB)
	fmt.Printf("option name UseTranspositionTable type check default true\n")
	fmt.Printf("option name Clear Hash type button\n")
	fmt.Println("uciok")
	return nil
}

func (uci *UCI) isready(line string) error {
	fmt.Println("readyok")
	return nil
}

func (uci *UCI) ucinewgame(line string) error {
	uci.Engine.NewGame()
	return nil
}

func (uci *UCI) position(line string) error {
	args := strings.Fields(line)[1:]
	if len(args) == 0 {
		return fmt.Errorf("expected argument for 'position'")
	}

	var pos *engine.Position
	var err error

	i := 0
	switch args[i] {
	case "startpos":
		pos, err = engine.PositionFromFEN(engine.FENStartPos)
		i++
	case "fen":
		for i < len(args) && args[i] != "moves" {
			i++
		}
		pos, err = engine.PositionFromFEN(strings.Join(args[1:i], " "))
	default:
		err = fmt.Errorf("unknown position command: %s", args[0])
	}
	if err != nil {
		return err
	}

	if i < len(args) {
		if args[i] != "moves" {
			return fmt.Errorf("expected 'moves', got %q", args[i])
		}
		for _, s := range args[i+1:] {
			m, err := pos.UCIToMove(s)
			if err != nil {
				return err
			}
			pos.MakeMove(m)
		}
	}

	// The engine state changes only after the whole command parsed.
	uci.Engine.SetPosition(pos)
	return nil
}

func (uci *UCI) go_(line string) error {
	var limits engine.Limits

	args := strings.Fields(line)[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "infinite":
			limits.Infinite = true
		case "wtime":
			i++
			t, _ := strconv.Atoi(args[i])
			limits.WTime = time.Duration(t) * time.Millisecond
		case "winc":
			i++
			t, _ := strconv.Atoi(args[i])
			limits.WInc = time.Duration(t) * time.Millisecond
		case "btime":
			i++
			t, _ := strconv.Atoi(args[i])
			limits.BTime = time.Duration(t) * time.Millisecond
		case "binc":
			i++
			t, _ := strconv.Atoi(args[i])
			limits.BInc = time.Duration(t) * time.Millisecond
		case "movestogo":
			i++
			t, _ := strconv.Atoi(args[i])
			limits.MovesToGo = t
		case "movetime":
			i++
			t, _ := strconv.Atoi(args[i])
			limits.MoveTime = time.Duration(t) * time.Millisecond
		case "depth":
			i++
			d, _ := strconv.Atoi(args[i])
			// Inconsistent limits are clamped, not rejected.
			limits.Depth = max(d, 1)
		case "nodes":
			i++
			n, _ := strconv.ParseUint(args[i], 10, 64)
			limits.Nodes = n
		default:
			return fmt.Errorf("invalid go command %s", args[i])
		}
	}

	uci.timeControl = engine.NewTimeControl(uci.Engine.Position, limits)
	uci.timeControl.Start()
	uci.idle <- struct{}{}
	go uci.play()
	return nil
}

func (uci *UCI) stop(line string) error {
	// Stop the timer if not already stopped.
	if uci.timeControl != nil {
		uci.timeControl.Stop()
	}
	// Wait until the engine becomes idle again.
	uci.idle <- struct{}{}
	<-uci.idle
	return nil
}

// play runs the engine. Should run in its own goroutine.
func (uci *UCI) play() {
	moves := uci.Engine.Play(uci.timeControl)

	if len(moves) >= 2 {
		fmt.Printf("bestmove %v ponder %v\n", moves[0].UCI(), moves[1].UCI())
	} else if len(moves) == 1 {
		fmt.Printf("bestmove %v\n", moves[0].UCI())
	} else {
		fmt.Printf("bestmove (none)\n")
	}

	// Marks the engine as idle.
	<-uci.idle
}

var reOption = regexp.MustCompile(`^setoption\s+name\s+(.+?)(\s+value\s+(.*))?$`)

func (uci *UCI) setoption(line string) error {
	option := reOption.FindStringSubmatch(line)
	if option == nil {
		return fmt.Errorf("invalid setoption arguments")
	}

	// Handle buttons which don't have a value.
	switch option[1] {
	case "Clear Hash":
		engine.GlobalHashTable.Clear()
		return nil
	}

	// Handle the remaining options.
	if len(option) < 4 || option[3] == "" {
		return fmt.Errorf("missing setoption value")
	}
	switch option[1] {
	case "Hash":
		hashSizeMB, err := strconv.ParseInt(option[3], 10, 64)
		if err != nil {
			return err
		}
		engine.GlobalHashTable.Resize(int(hashSizeMB))
		return nil
	case "UseTranspositionTable":
		use, err := strconv.ParseBool(option[3])
		if err != nil {
			return err
		}
		engine.GlobalHashTable.SetEnabled(use)
		return nil
	default:
		return fmt.Errorf("unhandled option %s", option[1])
	}
}
