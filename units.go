/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import "fmt"

// byteSize renders a frame or response length in SI units.
func byteSize(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d B", n)
	}

	size := float64(n)
	for _, prefix := range "kMGT" {
		size /= 1000
		if size < 1000 {
			return fmt.Sprintf("%.1f %cB", size, prefix)
		}
	}

	return fmt.Sprintf("%.1f PB", size/1000)
}
