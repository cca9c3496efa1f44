package build

import (
	"strconv"
	"strings"
)

// SizeReport holds the section sizes reported for a compiled firmware
// binary, as printed by the toolchain's size utility:
//
//	   text	   data	    bss	    dec	    hex	filename
//	 101312	   2152	   9880	 113344	  1bac0	firmware.elf
//
// All values are in bytes. Size is the "dec" total as reported by the
// tool, not a sum recomputed from the other three columns.
type SizeReport struct {
	Text int `json:"text"`
	Data int `json:"data"`
	BSS  int `json:"bss"`
	Size int `json:"size"`
}

// Less reports whether r is a smaller binary than other, comparing by
// total reported size.
func (r SizeReport) Less(other SizeReport) bool {
	return r.Size < other.Size
}

// DecodeSizeReport parses the size summary text returned by the compile
// endpoint. It expects a header line followed by a whitespace-separated
// numeric line and reads the first four columns (text, data, bss, dec) of
// line index 1. The boolean result is false when the input does not have
// that shape; a malformed report is an expected outcome, not an error.
func DecodeSizeReport(s string) (SizeReport, bool) {
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return SizeReport{}, false
	}

	fields := strings.Fields(lines[1])
	if len(fields) < 4 {
		return SizeReport{}, false
	}

	values := make([]int, 4)
	for i := 0; i < 4; i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return SizeReport{}, false
		}
		values[i] = n
	}

	return SizeReport{
		Text: values[0],
		Data: values[1],
		BSS:  values[2],
		Size: values[3],
	}, true
}
