package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1 || value == 0:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

func FormatFrequency(freq float64) string {
	switch {
	case freq >= 1e6:
		return fmt.Sprintf("%7.3f MHz", freq/1e6)
	case freq >= 1e3:
		return fmt.Sprintf("%7.3f kHz", freq/1e3)
	default:
		return fmt.Sprintf("%7.3f Hz ", freq)
	}
}

var suffixFactors = map[string]float64{
	"t":   1e12,
	"g":   1e9,
	"meg": 1e6,
	"k":   1e3,
	"m":   1e-3,
	"u":   1e-6,
	"n":   1e-9,
	"p":   1e-12,
	"f":   1e-15,
}

// ParseValue parses a component value with an optional engineering suffix:
// "4.7k", "100n", "2.2meg". Suffixes are case-insensitive and "m" is
// milli; mega is spelled "meg".
func ParseValue(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}

	cut := len(s)
	for cut > 0 && !isDigit(s[cut-1]) && s[cut-1] != '.' {
		cut--
	}
	numPart, suffix := s[:cut], s[cut:]

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %v", s, err)
	}
	if suffix == "" {
		return value, nil
	}
	factor, ok := suffixFactors[suffix]
	if !ok {
		return 0, fmt.Errorf("invalid value %q: unknown suffix %q", s, suffix)
	}
	return value * factor, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
