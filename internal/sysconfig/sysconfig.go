/*
   alphasim - system configuration file parser

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

// Package sysconfig is a hand-rolled recursive-descent parser for the
// system configuration file, the same line/position character-scanning
// idiom the teacher's config/configparser package uses for S/370 device
// configuration, narrowed to the handful of directives a standalone Alpha
// core needs: CPU count, PAL flavor, physical memory size, and MMIO
// device mappings.
//
// Configuration file format:
//
//	'#' starts a comment, rest of line ignored.
//	cpus <count>
//	memory <size>[K|M|G]
//	palflavor <vms|tru64|windowsnt>
//	device <hexaddr> <size>[K|M|G] <model> [name]
package sysconfig

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// DeviceModel is a registered MMIO device constructor, keyed by the
// model name used in a `device` directive — the same registration
// pattern as the teacher's RegisterModel, narrowed to a single
// (base, size, name) -> error signature since this core has no
// S/370-style device-number addressing.
type DeviceModel func(base uint64, size uint64, name string) error

var models = map[string]DeviceModel{}

// RegisterDevice should be called from an init function to make a model
// name available to `device` directives.
func RegisterDevice(name string, fn DeviceModel) {
	models[strings.ToUpper(name)] = fn
}

// System is the parsed configuration: everything needed to build the
// SmpCoordinator, the CPU cores, and the memory bus before the console
// takes over.
type System struct {
	CPUCount   int
	MemorySize uint64
	PALFlavor  string
}

// DefaultSystem returns the configuration used when no file is supplied.
func DefaultSystem() System {
	return System{CPUCount: 1, MemorySize: 64 << 20, PALFlavor: "vms"}
}

type configLine struct {
	line string
	pos  int
	num  int
}

// Load reads and parses a configuration file, applying `device` directives
// immediately via the registered DeviceModel and returning the resolved
// System for the remaining directives.
func Load(path string) (System, error) {
	sys := DefaultSystem()

	file, err := os.Open(path)
	if err != nil {
		return sys, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	lineNumber := 0
	for {
		raw, err := reader.ReadString('\n')
		lineNumber++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return sys, err
		}
		cl := &configLine{line: raw, num: lineNumber}
		if perr := cl.apply(&sys); perr != nil {
			return sys, perr
		}
	}
	return sys, nil
}

func (l *configLine) apply(sys *System) error {
	l.skipSpace()
	if l.isEOL() {
		return nil
	}
	directive := l.word()
	l.skipSpace()

	switch strings.ToUpper(directive) {
	case "CPUS":
		n, err := strconv.Atoi(l.word())
		if err != nil || n < 1 {
			return fmt.Errorf("line %d: invalid cpus value", l.num)
		}
		sys.CPUCount = n

	case "MEMORY":
		size, err := l.parseSize()
		if err != nil {
			return fmt.Errorf("line %d: %w", l.num, err)
		}
		sys.MemorySize = size

	case "PALFLAVOR":
		sys.PALFlavor = strings.ToLower(l.word())

	case "DEVICE":
		baseStr := l.word()
		l.skipSpace()
		sizeStr := l.word()
		l.skipSpace()
		model := l.word()
		l.skipSpace()
		name := l.word()

		base, err := strconv.ParseUint(strings.TrimPrefix(baseStr, "0x"), 16, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid device base address %q", l.num, baseStr)
		}
		size, err := parseSizeString(sizeStr)
		if err != nil {
			return fmt.Errorf("line %d: invalid device size %q", l.num, sizeStr)
		}
		fn, ok := models[strings.ToUpper(model)]
		if !ok {
			return fmt.Errorf("line %d: unknown device model %q", l.num, model)
		}
		return fn(base, size, name)

	default:
		return fmt.Errorf("line %d: unknown directive %q", l.num, directive)
	}
	return nil
}

func (l *configLine) skipSpace() {
	for l.pos < len(l.line) && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

func (l *configLine) isEOL() bool {
	if l.pos >= len(l.line) {
		return true
	}
	return l.line[l.pos] == '#'
}

// word consumes the next run of non-space characters.
func (l *configLine) word() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.line) && !unicode.IsSpace(rune(l.line[l.pos])) && l.line[l.pos] != '#' {
		l.pos++
	}
	return l.line[start:l.pos]
}

func (l *configLine) parseSize() (uint64, error) {
	return parseSizeString(l.word())
}

// parseSizeString parses a decimal size with an optional K/M/G suffix.
func parseSizeString(s string) (uint64, error) {
	if s == "" {
		return 0, errors.New("missing size")
	}
	mult := uint64(1)
	switch s[len(s)-1] {
	case 'K', 'k':
		mult = 1 << 10
		s = s[:len(s)-1]
	case 'M', 'm':
		mult = 1 << 20
		s = s[:len(s)-1]
	case 'G', 'g':
		mult = 1 << 30
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
