// Package ata implements PIO (programmed I/O) reads from the primary ATA
// bus's master drive, the only storage access this kernel performs:
// every sector read is synchronous, polling the status port until the
// drive signals data ready (spec.md §4.6/§5 -- ATA PIO is explicitly
// polling-based, never interrupt-driven, unlike the keyboard).
package ata

import (
	"novaos/kernel"
	"novaos/kernel/config"
)

// Primary ATA bus I/O ports (ISA legacy fixed addresses).
const (
	portData       = 0x1F0
	portSectorCnt  = 0x1F2
	portLBALow     = 0x1F3
	portLBAMid     = 0x1F4
	portLBAHigh    = 0x1F5
	portDriveHead  = 0x1F6
	portCommand    = 0x1F7
	portStatus     = 0x1F7

	cmdReadSectors = 0x20

	statusBusy  = 0x80
	statusReady = 0x08
	statusError = 0x01

	driveMasterLBA = 0xE0
)

var errIO = &kernel.Error{Module: "ata", Message: "ATA PIO read failed or timed out"}

// in8Fn/out8Fn/in16Fn let the polling protocol be exercised against a
// software fake in tests instead of real I/O ports, which do not exist in
// a hosted test process. Kernel init installs cpu.In8/Out8/In16 here via
// SetPortHooks; left as no-ops until then so this package can be imported
// before that wiring happens.
var (
	in8Fn  = func(port uint16) uint8 { return statusReady }
	out8Fn = func(port uint16, v uint8) {}
	in16Fn = func(port uint16) uint16 { return 0 }
)

// SetPortHooks installs the real cpu.In8/Out8/In16 functions; called once
// during kernel init.
func SetPortHooks(in8 func(uint16) uint8, out8 func(uint16, uint8), in16 func(uint16) uint16) {
	in8Fn, out8Fn, in16Fn = in8, out8, in16
}

// maxPollSpins bounds how many status reads waitReady makes before it
// gives up.
var maxPollSpins = 100000

// ReadSector issues one PIO sector read at lba into buf, which must be
// exactly config.SectorSize bytes. The driver always writes a full
// sector: callers with a smaller destination corrupt adjacent memory,
// which is why every caller in this kernel rounds its buffer size up to
// config.SectorSize first (spec.md §4.6).
func ReadSector(lba uint32, buf []byte) *kernel.Error {
	if len(buf) != config.SectorSize {
		return errIO
	}

	out8Fn(portDriveHead, driveMasterLBA|uint8((lba>>24)&0x0F))
	out8Fn(portSectorCnt, 1)
	out8Fn(portLBALow, uint8(lba))
	out8Fn(portLBAMid, uint8(lba>>8))
	out8Fn(portLBAHigh, uint8(lba>>16))
	out8Fn(portCommand, cmdReadSectors)

	if err := waitReady(); err != nil {
		return err
	}

	for i := 0; i < config.SectorSize; i += 2 {
		word := in16Fn(portData)
		buf[i] = byte(word)
		buf[i+1] = byte(word >> 8)
	}

	return nil
}

// waitReady polls the status port until BSY clears and either DRQ sets
// (data ready) or ERR sets (failure), or the poll budget is exhausted.
func waitReady() *kernel.Error {
	for spins := 0; spins < maxPollSpins; spins++ {
		status := in8Fn(portStatus)
		if status&statusBusy != 0 {
			continue
		}
		if status&statusError != 0 {
			return errIO
		}
		if status&statusReady != 0 {
			return nil
		}
	}
	return errIO
}
