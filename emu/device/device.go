/*
   alphasim - MMIO device register dispatch contract

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

// Package device defines the narrow interface the core transacts with
// memory-mapped peripherals through. Specific device models (SCSI, NIC,
// UART) are external collaborators; the core only ever sees this contract.
package device

import "errors"

// ErrUnsupportedSize is returned by a device that cannot service an access
// of the requested size.
var ErrUnsupportedSize = errors.New("device: unsupported access size")

// Device is the register-dispatch contract every memory-mapped peripheral
// implements. Offset is relative to the device's mapped base address.
// Legal sizes are 1, 2, 4 and 8 bytes.
type Device interface {
	Read(offset uint64, size int) (uint64, error)
	Write(offset uint64, size int, value uint64) error
	Identify() string
	Reset()
}

// ValidSize reports whether size is one of the four legal MMIO access
// widths.
func ValidSize(size int) bool {
	switch size {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}
