//go:build unix

package core

import "syscall"

// setSocketOpts enables broadcast, and address reuse so several local
// processes can listen for announcements on the same port.
func setSocketOpts(fd uintptr) error {
	if err := syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		return err
	}
	return syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
}
