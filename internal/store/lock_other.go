//go:build !unix

package store

import "os"

// Advisory locking is only implemented on unix; elsewhere the store runs
// with the plain single-writer assumption.
func flock(*os.File) error   { return nil }
func funlock(*os.File) error { return nil }
