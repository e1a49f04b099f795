// Package fs implements the on-disk flat file system (spec.md §4.6/§6): a
// fixed superblock, a linear inode table, and a file-read path that
// drains an inode's block list through sequential ATA PIO sector reads.
package fs

import (
	"novaos/kernel"
	"novaos/kernel/config"
	"novaos/kernel/fs/ata"
	"novaos/kernel/kfmt"
)

var errNotMounted = &kernel.Error{Module: "fs", Message: "filesystem not mounted"}
var errNotFound = &kernel.Error{Module: "fs", Message: "no inode with the requested name"}

// readSectorFn indirects every sector read through ata.ReadSector by
// default, substitutable in tests with an in-memory fake disk.
var readSectorFn = ata.ReadSector

var mounted bool

// Mount reads the superblock and checks its magic. A magic mismatch
// fails soft: it is logged and the filesystem stays unmounted, matching
// spec.md §4.6's "fail soft (print and continue)" contract rather than
// panicking the kernel over a missing disk image.
func Mount() bool {
	magic, err := readSuperblockMagic()
	if err != nil || magic != config.SuperblockMagic {
		kfmt.Printf("fs: superblock magic mismatch, staying unmounted\n")
		mounted = false
		return false
	}
	mounted = true
	return true
}

// Mounted reports whether Mount succeeded.
func Mounted() bool { return mounted }

// Lookup linearly scans the inode table sectors for a used record whose
// name matches query exactly, per spec.md §4.6.
func Lookup(query []byte) (Inode, *kernel.Error) {
	if !mounted {
		return Inode{}, errNotMounted
	}

	var sector [config.SectorSize]byte
	for s := uint32(config.SectorInodeTableLo); s <= config.SectorInodeTableHi; s++ {
		if err := readSectorFn(s, sector[:]); err != nil {
			return Inode{}, err
		}

		for slot := 0; slot < config.InodesPerSector; slot++ {
			rec := sector[slot*config.InodeSize : (slot+1)*config.InodeSize]
			in := decodeInode(rec)
			if in.Used && in.nameEquals(query) {
				return in, nil
			}
		}
	}

	return Inode{}, errNotFound
}

// ReadFile drains in's block list into dst, one sector per block, in
// order. dst must be at least ceil(in.Size/SectorSize)*SectorSize bytes
// -- the driver always writes a full sector, and an under-sized
// destination corrupts whatever follows it (spec.md §4.6's load-bearing
// buffer-rounding contract). Returns the number of blocks read.
func ReadFile(in *Inode, dst []byte) (int, *kernel.Error) {
	blockCount := int((in.Size + config.SectorSize - 1) / config.SectorSize)
	if blockCount > config.MaxBlocksPerInode {
		return 0, errNotFound
	}
	if len(dst) < blockCount*config.SectorSize {
		return 0, errNotFound
	}

	for i := 0; i < blockCount; i++ {
		dest := dst[i*config.SectorSize : (i+1)*config.SectorSize]
		if err := readSectorFn(in.Blocks[i], dest); err != nil {
			return i, err
		}
	}

	return blockCount, nil
}

// ForEachUsedInode visits every used inode in the table, in on-disk
// order, stopping early if visit returns false. Used by sys_ls.
func ForEachUsedInode(visit func(in Inode) bool) *kernel.Error {
	if !mounted {
		return errNotMounted
	}

	var sector [config.SectorSize]byte
	for s := uint32(config.SectorInodeTableLo); s <= config.SectorInodeTableHi; s++ {
		if err := readSectorFn(s, sector[:]); err != nil {
			return err
		}

		for slot := 0; slot < config.InodesPerSector; slot++ {
			rec := sector[slot*config.InodeSize : (slot+1)*config.InodeSize]
			in := decodeInode(rec)
			if in.Used && !visit(in) {
				return nil
			}
		}
	}

	return nil
}
