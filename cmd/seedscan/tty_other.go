//go:build !linux

package main

func stderrIsTTY() bool {
	return false
}
