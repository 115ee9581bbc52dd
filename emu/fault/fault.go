/*
   alphasim - exception, trap and machine-check taxonomy

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

// Package fault defines the tagged-union exception types the core raises
// instead of throwing: memory faults, arithmetic traps, floating-point
// exceptions, illegal instructions and machine checks. Every fault carries
// a PAL vector class so the CPU core can compute the PAL entry point
// without a type switch per caller.
package fault

// MemoryFaultKind enumerates the memory fault taxonomy from the core spec.
type MemoryFaultKind int

const (
	PageFault MemoryFaultKind = iota
	AccessViolation
	AlignmentFault
	ProtectionViolation
	WriteProtectionFault
	ExecuteProtectionFault
	InvalidAddress
	TLBMiss
	DoubleFault
	BusError
)

func (k MemoryFaultKind) String() string {
	switch k {
	case PageFault:
		return "PageFault"
	case AccessViolation:
		return "AccessViolation"
	case AlignmentFault:
		return "AlignmentFault"
	case ProtectionViolation:
		return "ProtectionViolation"
	case WriteProtectionFault:
		return "WriteProtectionFault"
	case ExecuteProtectionFault:
		return "ExecuteProtectionFault"
	case InvalidAddress:
		return "InvalidAddress"
	case TLBMiss:
		return "TlbMiss"
	case DoubleFault:
		return "DoubleFault"
	case BusError:
		return "BusError"
	default:
		return "Unknown"
	}
}

// Class identifies which PAL entry-point offset an exception is routed to.
type Class int

const (
	ClassMachineCheck Class = iota
	ClassArithmeticTrap
	ClassAlignment
	ClassIllegalInstruction
	ClassInterrupt
	ClassAST
	ClassFPException
	ClassPageFault
	ClassAccessViolation
	ClassUnknown
)

// MemoryFault carries everything the PAL entry needs: the access that
// failed, the faulting instruction's PC, and (when known) the raw
// instruction word.
type MemoryFault struct {
	Kind        MemoryFaultKind
	Address     uint64
	Size        uint8
	IsWrite     bool
	PC          uint64
	Instruction uint32
}

func (f *MemoryFault) Error() string {
	return "memory fault: " + f.Kind.String()
}

// PALClass maps a memory fault kind to the PAL entry-point class it
// delivers through.
func (f *MemoryFault) PALClass() Class {
	switch f.Kind {
	case PageFault:
		return ClassPageFault
	case TLBMiss:
		return ClassPageFault
	case AccessViolation, ProtectionViolation, WriteProtectionFault, ExecuteProtectionFault:
		return ClassAccessViolation
	case AlignmentFault:
		return ClassAlignment
	case BusError, InvalidAddress:
		return ClassMachineCheck
	case DoubleFault:
		return ClassMachineCheck
	default:
		return ClassUnknown
	}
}

// ArithmeticTrapKind enumerates integer arithmetic traps.
type ArithmeticTrapKind int

const (
	IntegerOverflow ArithmeticTrapKind = iota
	DivisionByZero
)

type ArithmeticTrap struct {
	Kind ArithmeticTrapKind
	PC   uint64
}

func (t *ArithmeticTrap) Error() string { return "arithmetic trap" }
func (t *ArithmeticTrap) PALClass() Class { return ClassArithmeticTrap }

// FPExceptionKind enumerates IEEE 754 floating point exceptions.
type FPExceptionKind int

const (
	FPInvalid FPExceptionKind = iota
	FPDivByZero
	FPOverflow
	FPUnderflow
	FPInexact
)

type FloatingPointException struct {
	Kind FPExceptionKind
	PC   uint64
}

func (e *FloatingPointException) Error() string  { return "floating point exception" }
func (e *FloatingPointException) PALClass() Class { return ClassFPException }

// IllegalInstruction is raised when an opcode or function code cannot be
// decoded into any known executor.
type IllegalInstruction struct {
	PC          uint64
	Instruction uint32
}

func (e *IllegalInstruction) Error() string  { return "illegal instruction" }
func (e *IllegalInstruction) PALClass() Class { return ClassIllegalInstruction }

// MachineCheckKind enumerates fatal/near-fatal hardware error conditions.
type MachineCheckKind int

const (
	CacheParity MachineCheckKind = iota
	MemoryECC
	MachineCheckBusError
	DoubleMachineCheck
	Thermal
	Firmware
)

type MachineCheck struct {
	Kind   MachineCheckKind
	Detail string
	Fatal  bool
}

func (e *MachineCheck) Error() string  { return "machine check: " + e.Detail }
func (e *MachineCheck) PALClass() Class { return ClassMachineCheck }

// Interrupt carries an IPI or external-device vector delivered by the
// SmpCoordinator and accepted at an instruction boundary.
type Interrupt struct {
	Source uint8
	Vector uint8
	PC     uint64
}

func (e *Interrupt) Error() string  { return "interrupt" }
func (e *Interrupt) PALClass() Class { return ClassInterrupt }

// Exception is the common interface every fault type in this package
// satisfies; the CPU core matches on the concrete type to fill in the
// exception frame, but dispatches to a PAL entry point using only this
// interface.
type Exception interface {
	error
	PALClass() Class
}
