package display

import (
	"fmt"
	"strings"
)

// FormatHex renders data as a classic 16-bytes-per-row hex dump:
//
//	00000000  48 65 6c 6c 6f 0a                                 |Hello.|
func FormatHex(data []byte) string {
	var b strings.Builder
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]

		fmt.Fprintf(&b, "%08x  ", off)
		for i := 0; i < 16; i++ {
			if i < len(row) {
				fmt.Fprintf(&b, "%02x ", row[i])
			} else {
				b.WriteString("   ")
			}
			if i == 7 {
				b.WriteByte(' ')
			}
		}
		b.WriteString(" |")
		for _, c := range row {
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			b.WriteByte(c)
		}
		b.WriteString("|")
		if end < len(data) {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
