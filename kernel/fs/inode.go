package fs

import (
	"encoding/binary"
	"novaos/kernel/config"
)

// On-disk inode layout (spec.md §6): 256 bytes exactly, two records per
// 512-byte sector.
const (
	inodeUsedOff   = 0
	inodeNameOff   = 1
	inodeSizeOff   = inodeNameOff + config.FilenameMaxLen // 33
	inodeBlocksOff = inodeSizeOff + 4                     // 37
)

// Inode is the in-memory decoding of one on-disk inode record.
type Inode struct {
	Used   bool
	Name   [config.FilenameMaxLen]byte
	Size   uint32
	Blocks [config.MaxBlocksPerInode]uint32
}

// NameBytes returns Name trimmed at its first NUL byte, without
// allocating: this kernel has no working Go heap to back a string
// conversion, so callers needing to print or compare a name work with the
// returned slice directly (kfmt.Printf's %s accepts a []byte as-is).
func (in *Inode) NameBytes() []byte {
	for i, b := range in.Name {
		if b == 0 {
			return in.Name[:i]
		}
	}
	return in.Name[:]
}

// nameEquals reports whether Name (trimmed at its first NUL) matches
// query byte-for-byte.
func (in *Inode) nameEquals(query []byte) bool {
	name := in.NameBytes()
	if len(name) != len(query) {
		return false
	}
	for i := range name {
		if name[i] != query[i] {
			return false
		}
	}
	return true
}

// decodeInode reads one 256-byte record byte-wise: the record is packed
// tightly enough (two to a sector) that a Go struct overlay would read
// across word boundaries the compiler assumes are aligned, corrupting the
// block-number array (spec.md §4.6's byte-wise-copy requirement).
func decodeInode(rec []byte) Inode {
	var in Inode
	in.Used = rec[inodeUsedOff] == 1
	copy(in.Name[:], rec[inodeNameOff:inodeNameOff+config.FilenameMaxLen])
	in.Size = binary.LittleEndian.Uint32(rec[inodeSizeOff:])

	for i := 0; i < config.MaxBlocksPerInode; i++ {
		off := inodeBlocksOff + i*4
		in.Blocks[i] = binary.LittleEndian.Uint32(rec[off:])
	}

	return in
}
