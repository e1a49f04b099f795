package syscall

import (
	"novaos/kernel/fs"
	"novaos/kernel/gate"
	"novaos/kernel/kfmt"
)

func init() {
	Register(Ls, sysLs)
}

// sysLs implements sys_ls: print every used inode's name and size.
// Returns 0 always; there is no failure mode distinct from an empty or
// unmounted filesystem, which simply prints nothing.
func sysLs(trap *gate.TrapFrame) uint32 {
	fs.ForEachUsedInode(func(in fs.Inode) bool {
		kfmt.Printf("%s\t%d\n", in.NameBytes(), in.Size)
		return true
	})
	return 0
}
