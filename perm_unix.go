//go:build unix

package main

import "golang.org/x/sys/unix"

// checkExecutable asks the kernel whether the current user may run path
func checkExecutable(path string) error {
	return unix.Access(path, unix.X_OK)
}
