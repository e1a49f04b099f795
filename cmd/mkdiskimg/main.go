// Command mkdiskimg assembles a bootable novaos disk image from a build
// manifest: a second-stage loader binary plus a set of files to embed in
// the flat filesystem (kernel/fs, kernel/config's on-disk layout).
//
// Usage: mkdiskimg manifest.yaml output.img
//
// Image layout (all fields little-endian, 512-byte sectors, matching
// kernel/config exactly):
//
//	sector 0:            MBR (boot signature 0x55AA at offset 510)
//	sectors 1..16:       stage2 loader, zero-padded to 16 sectors
//	sector 17:           superblock (magic uint32 at offset 0)
//	sector 18:           inode bitmap
//	sectors 19..26:      inode table, 2 records/sector, 16 records total
//	sectors 27..:        file data blocks, one inode's blocks at a time
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v3"
)

const (
	sectorSize = 512

	sectorMBR          = 0
	sectorStage2Start  = 1
	sectorStage2Count  = 16
	sectorSuperblock   = 17
	sectorInodeBitmap  = 18
	sectorInodeTableLo = 19
	sectorInodeTableHi = 26

	inodeSize       = 256
	inodesPerSector = sectorSize / inodeSize
	maxInodes       = (sectorInodeTableHi - sectorInodeTableLo + 1) * inodesPerSector

	maxBlocksPerInode = 48
	filenameMaxLen    = 32
	maxFileSize       = maxBlocksPerInode * sectorSize

	superblockMagic = 0x12345678

	mbrSignatureOffset = 510
	mbrSignature       = 0x55AA

	firstDataSector = sectorInodeTableHi + 1

	inodeUsedOff   = 0
	inodeNameOff   = 1
	inodeSizeOff   = inodeNameOff + filenameMaxLen
	inodeBlocksOff = inodeSizeOff + 4
)

// Manifest describes the embedded files and loader that mkdiskimg packs
// into an image; written by hand alongside whatever builds the kernel and
// init binaries.
type Manifest struct {
	Stage2 string         `yaml:"stage2"`
	Files  []ManifestFile `yaml:"files"`
}

// ManifestFile is one flat filesystem entry: Name is the on-disk inode
// name (truncated to filenameMaxLen bytes), Path is the host file to read
// its contents from.
type ManifestFile struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Stage2 == "" {
		return nil, fmt.Errorf("manifest has no stage2 entry")
	}
	if len(m.Files) > maxInodes {
		return nil, fmt.Errorf("manifest lists %d files, the inode table holds at most %d", len(m.Files), maxInodes)
	}
	return &m, nil
}

// ceilSectors returns the number of sectorSize sectors needed to hold n
// bytes.
func ceilSectors(n int) int {
	return (n + sectorSize - 1) / sectorSize
}

// builtFile is a manifest entry after its host content has been read and
// assigned a run of data sectors.
type builtFile struct {
	name   string
	data   []byte
	blocks []uint32
}

// PlanSectors reports how many sectors BuildImage will write, so a caller
// can size a progress bar before the (potentially slow) read-and-assemble
// pass starts.
func PlanSectors(m *Manifest, dir string) (int, error) {
	total := firstDataSector
	for _, f := range m.Files {
		info, err := os.Stat(resolvePath(dir, f.Path))
		if err != nil {
			return 0, fmt.Errorf("stat %s: %w", f.Path, err)
		}
		total += ceilSectors(int(info.Size()))
	}
	return total, nil
}

// BuildImage assembles the full disk image bytes from a manifest and its
// working directory (Files paths are resolved relative to it). bar, if
// non-nil, is advanced by one for every sector written; its max should
// already be set from PlanSectors.
func BuildImage(m *Manifest, dir string, bar *progressbar.ProgressBar) ([]byte, error) {
	stage2, err := os.ReadFile(resolvePath(dir, m.Stage2))
	if err != nil {
		return nil, fmt.Errorf("reading stage2: %w", err)
	}
	if len(stage2) > sectorStage2Count*sectorSize {
		return nil, fmt.Errorf("stage2 is %d bytes, larger than the %d reserved sectors allow",
			len(stage2), sectorStage2Count)
	}

	built := make([]builtFile, 0, len(m.Files))
	nextSector := uint32(firstDataSector)
	for _, f := range m.Files {
		content, err := os.ReadFile(resolvePath(dir, f.Path))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Path, err)
		}
		if len(content) > maxFileSize {
			return nil, fmt.Errorf("%s is %d bytes, larger than the %d byte limit", f.Path, len(content), maxFileSize)
		}

		count := ceilSectors(len(content))
		if count > maxBlocksPerInode {
			return nil, fmt.Errorf("%s needs %d blocks, more than the %d an inode can hold", f.Path, count, maxBlocksPerInode)
		}

		blocks := make([]uint32, count)
		for i := range blocks {
			blocks[i] = nextSector
			nextSector++
		}

		built = append(built, builtFile{name: f.Name, data: content, blocks: blocks})
	}

	totalSectors := int(nextSector)
	out := make([]byte, totalSectors*sectorSize)

	writeMBR(out)
	copy(out[sectorStage2Start*sectorSize:], stage2)
	writeSuperblock(out)
	writeInodeTable(out, built)
	if bar != nil {
		bar.Add(firstDataSector)
	}
	writeFileData(out, built, bar)

	return out, nil
}

func resolvePath(dir, path string) string {
	if dir == "" || path == "" || path[0] == '/' {
		return path
	}
	return dir + "/" + path
}

func writeMBR(out []byte) {
	mbr := out[sectorMBR*sectorSize : (sectorMBR+1)*sectorSize]
	binary.LittleEndian.PutUint16(mbr[mbrSignatureOffset:], mbrSignature)
}

func writeSuperblock(out []byte) {
	sb := out[sectorSuperblock*sectorSize : (sectorSuperblock+1)*sectorSize]
	binary.LittleEndian.PutUint32(sb[0:], superblockMagic)
}

func writeInodeTable(out []byte, files []builtFile) {
	tableBase := sectorInodeTableLo * sectorSize
	for i, f := range files {
		rec := out[tableBase+i*inodeSize : tableBase+(i+1)*inodeSize]

		rec[inodeUsedOff] = 1
		nameLen := len(f.name)
		if nameLen > filenameMaxLen {
			nameLen = filenameMaxLen
		}
		copy(rec[inodeNameOff:inodeNameOff+filenameMaxLen], f.name[:nameLen])
		binary.LittleEndian.PutUint32(rec[inodeSizeOff:], uint32(len(f.data)))

		for b, block := range f.blocks {
			off := inodeBlocksOff + b*4
			binary.LittleEndian.PutUint32(rec[off:], block)
		}
	}
}

func writeFileData(out []byte, files []builtFile, bar *progressbar.ProgressBar) {
	for _, f := range files {
		remaining := f.data
		for _, block := range f.blocks {
			dst := out[int(block)*sectorSize : int(block+1)*sectorSize]
			n := copy(dst, remaining)
			remaining = remaining[n:]
			if bar != nil {
				bar.Add(1)
			}
		}
	}
}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: mkdiskimg manifest.yaml output.img\n")
		os.Exit(1)
	}
	manifestPath, outputPath := os.Args[1], os.Args[2]

	m, err := loadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkdiskimg: %v\n", err)
		os.Exit(1)
	}

	dir := dirOf(manifestPath)
	totalSectors, err := PlanSectors(m, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkdiskimg: %v\n", err)
		os.Exit(1)
	}

	bar := progressbar.Default(int64(totalSectors), "building image")
	defer bar.Close()

	img, err := BuildImage(m, dir, bar)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkdiskimg: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, img, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "mkdiskimg: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("mkdiskimg: wrote %d sectors (%d bytes) to %s\n", len(img)/sectorSize, len(img), outputPath)
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}
