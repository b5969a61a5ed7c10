// seajay is a UCI chess engine.
//
// All protocol output goes to stdout; diagnostic logging goes to
// stderr so it never interleaves with the protocol.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/op/go-logging"
)

var buildVersion = "dev"

var log = logging.MustGetLogger("seajay")

var logLevel = flag.String("log_level", "warning", "minimum level of the diagnostic log (debug, info, warning, error)")

func setupLogging() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend,
		logging.MustStringFormatter("%{time:15:04:05.000} %{module} %{level:.4s} %{message}"))
	leveled := logging.AddModuleLevel(formatted)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		level = logging.WARNING
	}
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}

func main() {
	flag.Parse()
	setupLogging()

	log.Infof("seajay %s starting", buildVersion)

	uci := NewUCI()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if err := uci.Execute(line); err != nil {
			if err == errQuit {
				break
			}
			// A rejected command does not disturb the engine state.
			log.Warningf("rejected %q: %v", line, err)
			fmt.Printf("info string error %v\n", err)
		}
	}
}
