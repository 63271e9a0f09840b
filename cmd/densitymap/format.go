package main

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer formats counts with thousands separators.
var printer = message.NewPrinter(language.English)

// humanBytes formats n in binary units the way the export dialog does.
func humanBytes(n int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	f := float64(n)
	switch {
	case n < kb:
		return printer.Sprintf("%d B", n)
	case n < mb:
		return printer.Sprintf("%.2f KB", f/kb)
	case n < gb:
		return printer.Sprintf("%.2f MB", f/mb)
	default:
		return printer.Sprintf("%.2f GB", f/gb)
	}
}

// parseSize parses "WxH".
func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WIDTHxHEIGHT", s)
	}
	if w, err = strconv.Atoi(ws); err != nil || w < 1 {
		return 0, 0, fmt.Errorf("size %q: bad width", s)
	}
	if h, err = strconv.Atoi(hs); err != nil || h < 1 {
		return 0, 0, fmt.Errorf("size %q: bad height", s)
	}
	return w, h, nil
}

// parseCoord parses a pixel coordinate argument.
func parseCoord(s, axis string, limit int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: not a number", axis, s)
	}
	if n < 0 || n >= limit {
		return 0, fmt.Errorf("%s %d outside 0..%d", axis, n, limit-1)
	}
	return n, nil
}
