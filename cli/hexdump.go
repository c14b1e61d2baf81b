package main

import (
	"fmt"
	"strings"

	"github.com/BertoldVdb/osdmenu-tools/osdmem"
	"github.com/fatih/color"
)

/* Sixteen bytes per line in little endian words, marked bytes are red */
func hexdump(addr osdmem.Address, data []byte, mark []bool) string {
	var result strings.Builder
	red := color.New(color.FgRed)

	for len(data) > 0 {
		l := len(data)
		if l > 16 {
			l = 16
		}
		work := data[:l]
		data = data[l:]
		var workMark []bool
		if mark != nil {
			workMark = mark[:l]
			mark = mark[l:]
		}

		var workHex, workAscii strings.Builder
		for i := 0; i < 16; i++ {
			if i >= len(work) {
				workHex.WriteString("   ")
				workAscii.WriteByte(' ')
			} else {
				m := work[i]
				delta := workMark != nil && workMark[i]

				hex := fmt.Sprintf("%02x ", m)
				if m < 32 || m > 126 {
					m = '.'
				}
				ascii := string(rune(m))

				if delta {
					hex = red.Sprint(hex)
					ascii = red.Sprint(ascii)
				}
				workHex.WriteString(hex)
				workAscii.WriteString(ascii)
			}
			if i%4 == 3 {
				workHex.WriteByte(' ')
			}
		}

		fmt.Fprintf(&result, "%s  %s|%s|\n", addr, workHex.String(), workAscii.String())
		addr = addr.Add(l)
	}

	return result.String()
}

/* Dumps only the lines that contain a changed byte, with context */
func hexdiff(base osdmem.Address, before, after []byte, context int) string {
	const line = 16

	var result strings.Builder
	last := -1
	for start := 0; start < len(after); start += line {
		end := start + line
		if end > len(after) {
			end = len(after)
		}

		changed := false
		for i := start; i < end; i++ {
			if i >= len(before) || before[i] != after[i] {
				changed = true
				break
			}
		}
		if !changed {
			continue
		}

		from := start - context*line
		if from < 0 {
			from = 0
		}
		if last >= 0 {
			if from <= last {
				from = last
			} else {
				result.WriteString("...\n")
			}
		}
		to := end + context*line
		if to > len(after) {
			to = len(after)
		}

		mark := make([]bool, to-from)
		for i := range mark {
			j := from + i
			mark[i] = j >= len(before) || before[j] != after[j]
		}
		result.WriteString(hexdump(base.Add(from), after[from:to], mark))
		last = to
	}

	return result.String()
}
