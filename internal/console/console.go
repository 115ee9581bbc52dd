/*
   alphasim - interactive console command parser

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

// Package console is the interactive command-line grammar the CLI's
// liner-backed reader drives, mirroring the teacher's command/parser
// package: a prefix-matched command table over a hand-scanned cmdLine,
// narrowed to the CpuCore state-machine transitions spec.md §4.7 names
// (step/run/pause/reset/interrupt/show-registers) in place of the
// teacher's device attach/detach/IPL vocabulary.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/axpcore/alphasim/emu/cpu"
	disassembler "github.com/axpcore/alphasim/emu/disassemble"
	"github.com/axpcore/alphasim/emu/machine"
	"github.com/axpcore/alphasim/emu/tlb"
)

type cmdLine struct {
	line string
	pos  int
}

type cmd struct {
	name     string
	min      int
	process  func(*cmdLine, *machine.Machine) (bool, error)
	complete func(*cmdLine) []string
}

var cmdList = []cmd{
	{name: "step", min: 1, process: step},
	{name: "run", min: 1, process: run},
	{name: "pause", min: 1, process: pause},
	{name: "reset", min: 3, process: reset},
	{name: "interrupt", min: 3, process: interrupt},
	{name: "show", min: 2, process: show},
	{name: "disassemble", min: 1, process: disasm},
	{name: "quit", min: 1, process: quit},
}

// ProcessCommand executes one line of console input against m, returning
// whether the console should exit.
func ProcessCommand(line string, m *machine.Machine) (bool, error) {
	cl := cmdLine{line: line}
	name := cl.word()

	match := matchList(name)
	switch {
	case name == "":
		return false, nil
	case len(match) == 0:
		return false, fmt.Errorf("command not found: %s", name)
	case len(match) > 1:
		return false, fmt.Errorf("ambiguous command: %s", name)
	}
	return match[0].process(&cl, m)
}

// CompleteCmd returns the completion candidates for line, for liner's
// SetCompleter hook.
func CompleteCmd(line string) []string {
	cl := cmdLine{line: line}
	name := cl.word()

	if !cl.isEOL() && cl.pos > 0 && line[cl.pos-1] == ' ' {
		match := matchList(name)
		if len(match) != 1 || match[0].complete == nil {
			return nil
		}
		return match[0].complete(&cl)
	}

	match := matchList(name)
	out := make([]string, len(match))
	for i, m := range match {
		out[i] = m.name
	}
	return out
}

func matchList(name string) []cmd {
	if name == "" {
		return nil
	}
	var out []cmd
	for _, c := range cmdList {
		if matchCommand(c, name) {
			out = append(out, c)
		}
	}
	return out
}

func matchCommand(c cmd, name string) bool {
	if len(name) > len(c.name) {
		return false
	}
	for i := 0; i < len(name); i++ {
		if c.name[i] != name[i] {
			return false
		}
	}
	return len(name) >= c.min
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

func (l *cmdLine) isEOL() bool { return l.pos >= len(l.line) }

func (l *cmdLine) word() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.line) && !unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
	return l.line[start:l.pos]
}

func (l *cmdLine) cpuIndex() int {
	w := l.word()
	if w == "" {
		return 0
	}
	n, err := strconv.Atoi(w)
	if err != nil {
		return 0
	}
	return n
}

func step(l *cmdLine, m *machine.Machine) (bool, error) {
	id := l.cpuIndex()
	count := 1
	if w := l.word(); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil {
			return false, fmt.Errorf("bad step count: %s", w)
		}
		count = n
	}
	c := m.CPU(id)
	if c == nil {
		return false, fmt.Errorf("no such cpu: %d", id)
	}
	if c.RunState() == cpu.StateReset {
		c.Start()
	}
	c.Resume()
	for i := 0; i < count; i++ {
		c.Step()
	}
	c.Pause()
	return false, nil
}

func run(l *cmdLine, m *machine.Machine) (bool, error) {
	id := l.cpuIndex()
	c := m.CPU(id)
	if c == nil {
		return false, fmt.Errorf("no such cpu: %d", id)
	}
	if c.RunState() == cpu.StateReset {
		c.Start()
	}
	c.Resume()
	return false, nil
}

func pause(l *cmdLine, m *machine.Machine) (bool, error) {
	id := l.cpuIndex()
	c := m.CPU(id)
	if c == nil {
		return false, fmt.Errorf("no such cpu: %d", id)
	}
	c.Pause()
	return false, nil
}

func reset(l *cmdLine, m *machine.Machine) (bool, error) {
	id := l.cpuIndex()
	c := m.CPU(id)
	if c == nil {
		return false, fmt.Errorf("no such cpu: %d", id)
	}
	pc := uint64(0)
	if w := l.word(); w != "" {
		n, err := strconv.ParseUint(strings.TrimPrefix(w, "0x"), 16, 64)
		if err != nil {
			return false, fmt.Errorf("bad reset address: %s", w)
		}
		pc = n
	}
	c.Reset(pc)
	return false, nil
}

func interrupt(l *cmdLine, m *machine.Machine) (bool, error) {
	id := l.cpuIndex()
	vecWord := l.word()
	if vecWord == "" {
		return false, errors.New("interrupt requires a vector")
	}
	vec, err := strconv.ParseUint(strings.TrimPrefix(vecWord, "0x"), 16, 8)
	if err != nil {
		return false, fmt.Errorf("bad interrupt vector: %s", vecWord)
	}
	if !m.Coordinator().SendIPI(-1, id, uint8(vec)) {
		return false, fmt.Errorf("cpu %d has no inbox", id)
	}
	return false, nil
}

func show(l *cmdLine, m *machine.Machine) (bool, error) {
	w := l.word()
	if w == "" || w == "machine" {
		fmt.Println(m.String())
		return false, nil
	}
	id, err := strconv.Atoi(w)
	if err != nil {
		return false, fmt.Errorf("bad cpu index: %s", w)
	}
	c := m.CPU(id)
	if c == nil {
		return false, fmt.Errorf("no such cpu: %d", id)
	}
	s := c.State()
	fmt.Printf("cpu %d: pc=%#016x mode=%d pal=%v ipl=%d\n", id, s.PC, s.PS.Mode, s.PS.PALMode, s.PS.IPL)
	for i := 0; i < 32; i += 4 {
		fmt.Printf("  r%-2d=%#016x r%-2d=%#016x r%-2d=%#016x r%-2d=%#016x\n",
			i, s.Regs.ReadInt(uint8(i)), i+1, s.Regs.ReadInt(uint8(i+1)),
			i+2, s.Regs.ReadInt(uint8(i+2)), i+3, s.Regs.ReadInt(uint8(i+3)))
	}
	return false, nil
}

func disasm(l *cmdLine, m *machine.Machine) (bool, error) {
	id := l.cpuIndex()
	c := m.CPU(id)
	if c == nil {
		return false, fmt.Errorf("no such cpu: %d", id)
	}
	s := c.State()
	asn := uint8(s.Regs.IPR(cpu.IprASN))
	mode := tlb.User
	if s.PS.Mode == cpu.ModeKernel || s.PS.Mode == cpu.ModeExecutive {
		mode = tlb.Kernel
	}
	word, flt := c.Memory().ReadVirtualInstruction(s.PC, asn, mode)
	if flt != nil {
		return false, errors.New(flt.Error())
	}
	fmt.Printf("%#016x: %s\n", s.PC, disassembler.Disassemble(word))
	return false, nil
}

func quit(_ *cmdLine, _ *machine.Machine) (bool, error) {
	return true, nil
}
