package fs

import (
	"encoding/binary"
	"novaos/kernel"
	"novaos/kernel/config"
)

// readSuperblockMagic reads sector config.SectorSuperblock and returns its
// magic field, little-endian, without interpreting the rest of the
// sector (the superblock carries nothing else this kernel uses).
func readSuperblockMagic() (uint32, *kernel.Error) {
	var buf [config.SectorSize]byte
	if err := readSectorFn(config.SectorSuperblock, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:4]), nil
}
