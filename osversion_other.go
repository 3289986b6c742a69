//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package pulseagent

func osVersion() string {
	return ""
}
