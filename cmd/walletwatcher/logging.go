package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit ... 5=trace",
		Value: 3,
	}
	vmoduleFlag = &cli.StringFlag{
		Name:  "vmodule",
		Usage: "Per-module verbosity: comma-separated <pattern>=<level>",
	}
	logJSONFlag = &cli.BoolFlag{
		Name:  "log.json",
		Usage: "Format logs as JSON instead of terminal text",
	}
)

var loggingFlags = []cli.Flag{verbosityFlag, vmoduleFlag, logJSONFlag}

var glogger *log.GlogHandler

func init() {
	glogger = log.NewGlogHandler(log.NewTerminalHandler(os.Stderr, false))
	glogger.Verbosity(log.LevelInfo)
	log.SetDefault(log.NewLogger(glogger))
}

// setupLogging wires -verbosity/-vmodule/-log.json into the glog-style
// handler, exactly as internal/debug/flags.go's Setup does for geth.
func setupLogging(c *cli.Context) error {
	var handler slog.Handler
	if c.Bool(logJSONFlag.Name) {
		handler = log.JSONHandler(os.Stderr)
	} else {
		usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		var writer io.Writer = os.Stderr
		if usecolor {
			writer = colorable.NewColorableStderr()
		}
		handler = log.NewTerminalHandler(writer, usecolor)
	}
	glogger = log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(c.Int(verbosityFlag.Name)))
	if v := c.String(vmoduleFlag.Name); v != "" {
		if err := glogger.Vmodule(v); err != nil {
			return err
		}
	}
	log.SetDefault(log.NewLogger(glogger))
	return nil
}
