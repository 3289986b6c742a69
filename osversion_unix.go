//go:build linux || darwin || freebsd || netbsd || openbsd

package pulseagent

import "golang.org/x/sys/unix"

// osVersion returns the kernel release reported by uname(2).
func osVersion() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Release[:])
}
