package render

import (
	"strconv"
	"strings"
)

// ContrastColor picks black or white text for a background colour using
// perceived luminance. Unparseable input is treated as a dark background.
func ContrastColor(hex string) string {
	r, g, b, ok := parseHex(hex)
	if !ok {
		return "#FFF"
	}
	luminance := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255
	if luminance > 0.5 {
		return "#000"
	}
	return "#FFF"
}

// parseHex accepts #RGB and #RRGGBB, with or without the leading hash.
func parseHex(hex string) (r, g, b uint8, ok bool) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), true
}

// orDefault returns c when it parses as a colour, otherwise fallback.
func orDefault(c, fallback string) string {
	if _, _, _, ok := parseHex(c); ok {
		if !strings.HasPrefix(c, "#") {
			return "#" + c
		}
		return c
	}
	return fallback
}
