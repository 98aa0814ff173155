package pathsandbox

import (
	"bufio"
	"os"
	"strings"
)

// realFilesystems lists the mount table fstypes treated as real,
// bind-mountable volumes rather than virtual/pseudo filesystems.
var realFilesystems = map[string]bool{
	"ext4": true, "ext3": true, "ext2": true,
	"xfs": true, "btrfs": true, "zfs": true,
	"ntfs": true, "vfat": true, "fuse": true,
	"overlay": true, "nfs": true, "nfs4": true,
	"cifs": true, "9p": true, "drvfs": true, "virtiofs": true,
}

// systemMountPrefixes are excluded even when their fstype would otherwise
// qualify as a real filesystem (e.g. overlay root mounts on /).
var systemMountPrefixes = []string{
	"/proc", "/sys", "/dev", "/etc", "/run", "/snap", "/var/lib/docker",
}

// detectBindMounts best-effort parses /proc/mounts and returns mount points
// of real filesystems that aren't system paths. Returns nil if the mount
// table can't be read (e.g. non-Linux host).
func detectBindMounts() []string {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil
	}
	defer f.Close()

	var mounts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mountPoint, fstype := fields[1], fields[2]

		if !realFilesystems[fstype] {
			continue
		}
		if isSystemPath(mountPoint) {
			continue
		}

		mounts = append(mounts, mountPoint)
	}

	return mounts
}

func isSystemPath(path string) bool {
	for _, prefix := range systemMountPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
