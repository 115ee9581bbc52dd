/*
   alphasim - CLI entry point

   Copyright (c) 2025, Alpha AXP Core Emulator Contributors

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/axpcore/alphasim/emu/machine"
	"github.com/axpcore/alphasim/internal/console"
	"github.com/axpcore/alphasim/internal/obslog"
	"github.com/axpcore/alphasim/internal/sysconfig"
)

var logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "System configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Mirror all log records to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var sink io.Writer
	if *optLogFile != "" {
		file, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "alphasim: "+err.Error())
			os.Exit(1)
		}
		sink = file
	}
	logger = obslog.New(sink, slog.LevelInfo, *optDebug)
	slog.SetDefault(logger)

	cfg := sysconfig.DefaultSystem()
	if *optConfig != "" {
		loaded, err := sysconfig.Load(*optConfig)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		cfg = loaded
	}

	logger.Info("alphasim started", "cpus", cfg.CPUCount, "memory", cfg.MemorySize, "palflavor", cfg.PALFlavor)

	m := machine.New(cfg, logger)
	m.Start()

	runConsole(m)

	logger.Info("shutting down")
	m.Stop()
	logger.Info("stopped")
}

func runConsole(m *machine.Machine) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(input string) []string {
		return console.CompleteCmd(input)
	})

	for {
		input, err := line.Prompt("alphasim> ")
		if err == nil {
			line.AppendHistory(input)
			quit, cerr := console.ProcessCommand(input, m)
			if cerr != nil {
				fmt.Println("Error: " + cerr.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		logger.Error("error reading line: " + err.Error())
		return
	}
}
