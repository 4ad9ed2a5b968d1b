package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FrameRateTolerance is the maximum difference, in frames per second, at which
// two frame rates are still considered equal. Rational representations of the
// same nominal rate vary between sources (30/1, 30000/1001, 2997/100), so
// exact comparisons are never used.
const FrameRateTolerance = 0.1

// Rational is a frame rate as reported by ffprobe ("30000/1001").
type Rational struct {
	Num int64 `json:"num" yaml:"num"`
	Den int64 `json:"den" yaml:"den"`
}

// ParseRational parses "num/den" or a plain decimal ("25", "29.97").
//
// "0/0", which ffprobe reports for streams without a known rate, is
// rejected like any other zero or negative value.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Rational{}, fmt.Errorf("rational cannot be empty")
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("invalid numerator in %q: %w", s, err)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return Rational{}, fmt.Errorf("invalid denominator in %q: %w", s, err)
		}
		if n <= 0 || d <= 0 {
			return Rational{}, fmt.Errorf("rational %q must be positive", s)
		}
		return Rational{Num: n, Den: d}, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Rational{}, fmt.Errorf("invalid rational %q: %w", s, err)
	}
	return RationalFromFloat(f)
}

// RationalFromFloat converts a decimal rate into a rational with millisecond
// precision (29.97 -> 2997/100 after reduction).
func RationalFromFloat(f float64) (Rational, error) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return Rational{}, fmt.Errorf("rational %v must be positive", f)
	}
	r := Rational{Num: int64(math.Round(f * 1000)), Den: 1000}
	return r.reduce(), nil
}

// Float returns the rate as a float, for display and tolerance comparisons only.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero reports whether the rational carries no usable value.
func (r Rational) IsZero() bool {
	return r.Num <= 0 || r.Den <= 0
}

// String formats the rational the way ffmpeg accepts it.
func (r Rational) String() string {
	if r.Den == 1 {
		return strconv.FormatInt(r.Num, 10)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func (r Rational) reduce() Rational {
	a, b := r.Num, r.Den
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return r
	}
	return Rational{Num: r.Num / a, Den: r.Den / a}
}

// FrameRatesMatch reports whether a and b are within FrameRateTolerance.
func FrameRatesMatch(a, b float64) bool {
	return math.Abs(a-b) <= FrameRateTolerance
}
