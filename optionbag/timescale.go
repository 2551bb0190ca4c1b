package optionbag

import (
	"fmt"
	"strconv"
	"strings"
)

var timescaleUnits = map[string]bool{"s": true, "ms": true, "us": true, "ns": true, "ps": true, "fs": true}
var timescaleMagnitudes = map[int]bool{1: true, 10: true, 100: true}

// parseTimescale parses "<base>/<precision>", each of the form
// "<1|10|100><unit>" with unit one of s/ms/us/ns/ps/fs, e.g. "1ns/1ps".
func parseTimescale(raw string) (Timescale, error) {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return Timescale{}, fmt.Errorf("invalid timescale %q: expected BASE/PRECISION", raw)
	}
	baseMag, baseUnit, err := parseTimescaleComponent(parts[0])
	if err != nil {
		return Timescale{}, fmt.Errorf("invalid timescale base %q: %w", parts[0], err)
	}
	precMag, precUnit, err := parseTimescaleComponent(parts[1])
	if err != nil {
		return Timescale{}, fmt.Errorf("invalid timescale precision %q: %w", parts[1], err)
	}
	return Timescale{
		BaseMagnitude:      baseMag,
		BaseUnit:           baseUnit,
		PrecisionMagnitude: precMag,
		PrecisionUnit:      precUnit,
		set:                true,
	}, nil
}

func parseTimescaleComponent(s string) (int, string, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("missing magnitude")
	}
	mag, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, "", err
	}
	unit := s[i:]
	if !timescaleMagnitudes[mag] {
		return 0, "", fmt.Errorf("magnitude must be 1, 10, or 100, got %d", mag)
	}
	if !timescaleUnits[unit] {
		return 0, "", fmt.Errorf("unrecognized time unit %q", unit)
	}
	return mag, unit, nil
}

func formatTimescaleComponent(mag int, unit string) string {
	return strconv.Itoa(mag) + unit
}
