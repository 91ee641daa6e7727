//go:build windows

package core

import "syscall"

// setSocketOpts enables broadcast. SO_REUSEADDR is left alone on windows,
// where it lets another socket steal the port.
func setSocketOpts(fd uintptr) error {
	return syscall.SetsockoptInt(syscall.Handle(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
}
