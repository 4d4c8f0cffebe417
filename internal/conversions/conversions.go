// Package conversions holds unsafe conversions used when handing file contents to parsers.
package conversions

import "unsafe"

// ByteSlice2String converts bs to a string without copying. bs must not be modified afterwards.
func ByteSlice2String(bs []byte) string {
	if len(bs) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(bs), len(bs))
}
