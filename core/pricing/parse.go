// Package pricing - Girth range and length catalog parsing
package pricing

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"timbercalc/core/types"
	"timbercalc/internal/errors"
)

// Default texts offered before any table is defined
const (
	DefaultRangesText  = "0-18, 18-20, 20-30, 30-40, 40-50"
	DefaultLengthsText = "5, 8, 10, 12, 14, 16"
)

// Limits bounds the table dimensions
type Limits struct {
	// MaxGirth is the largest allowed end of the last band
	MaxGirth float64

	// MaxLength is the largest allowed catalog length
	MaxLength float64
}

// DefaultLimits returns the stock limits (100 in girth, 40 ft length)
func DefaultLimits() Limits {
	return Limits{MaxGirth: 100, MaxLength: 40}
}

// Check validates sorted bands and lengths against the limits.
// A zero limit is not enforced.
func (l Limits) Check(ranges []types.GirthRange, lengths []float64) error {
	if l.MaxGirth > 0 && len(ranges) > 0 && ranges[len(ranges)-1].End > l.MaxGirth {
		return errors.Validationf("Maximum Girth limit exceeded. Last range end cannot be greater than %.1f inches.", l.MaxGirth)
	}
	if l.MaxLength > 0 {
		for _, v := range lengths {
			if v > l.MaxLength {
				return errors.Validationf("Maximum Length limit exceeded. Individual length cannot be greater than %.1f feet.", l.MaxLength)
			}
		}
	}
	return nil
}

// ParseGirthRanges parses "start-end, start-end, ..." into sorted,
// contiguous bands. Empty items are skipped. Input is never coerced:
// any malformed item fails the whole list.
func ParseGirthRanges(text string) ([]types.GirthRange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Validation("Girth ranges cannot be empty.")
	}

	var ranges []types.GirthRange
	for _, part := range strings.Split(text, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		bounds := strings.Split(item, "-")
		if len(bounds) != 2 {
			return nil, errors.Parsing("Invalid girth range format: '"+item+"'. Use 'start-end'.", nil)
		}

		start, err := strconv.ParseFloat(strings.TrimSpace(bounds[0]), 64)
		if err != nil {
			return nil, errors.Parsing("Invalid number in girth range: '"+item+"'.", err)
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(bounds[1]), 64)
		if err != nil {
			return nil, errors.Parsing("Invalid number in girth range: '"+item+"'.", err)
		}
		if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
			return nil, errors.Parsing("Invalid number in girth range: '"+item+"'.", nil)
		}

		if start < 0 || end < 0 {
			return nil, errors.Validationf("Girth range values cannot be negative. Found in '%s'.", item)
		}
		if start >= end {
			return nil, errors.Validationf("Girth range 'start' must be less than 'end'. Invalid range: '%s'.", item)
		}
		ranges = append(ranges, types.GirthRange{Start: start, End: end})
	}

	if len(ranges) == 0 {
		return nil, errors.Validation("Girth ranges list is empty after parsing. Please enter values.")
	}
	if err := checkRanges(ranges); err != nil {
		return nil, err
	}
	return ranges, nil
}

// checkRanges sorts bands by start in place, then rejects duplicates and
// gaps or overlaps larger than Tolerance.
func checkRanges(ranges []types.GirthRange) error {
	for i := range ranges {
		for j := 0; j < i; j++ {
			if ranges[i].Equal(ranges[j]) {
				return errors.Validationf("Duplicate girth range found: '%s'.", ranges[i])
			}
		}
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Start < ranges[j].Start
	})

	for i := 1; i < len(ranges); i++ {
		if math.Abs(ranges[i].Start-ranges[i-1].End) > types.Tolerance {
			return errors.Validationf(
				"Girth ranges must be contiguous (e.g., 0-18, 18-20). Gap/overlap found between %.1f and %.1f.",
				ranges[i-1].End, ranges[i].Start)
		}
	}
	return nil
}

// ParseLengths parses "v, v, ..." into a sorted catalog of positive,
// distinct lengths.
func ParseLengths(text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Validation("Length values cannot be empty.")
	}

	var lengths []float64
	for _, part := range strings.Split(text, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		v, err := strconv.ParseFloat(item, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.Parsing("Invalid number found in length list: '"+item+"'", err)
		}
		if v <= 0 {
			return nil, errors.Validationf("Length values must be positive. Found '%s'.", item)
		}
		lengths = append(lengths, v)
	}

	if len(lengths) == 0 {
		return nil, errors.Validation("Length values list is empty after parsing. Please enter values.")
	}
	if err := checkLengths(lengths); err != nil {
		return nil, err
	}
	return lengths, nil
}

// checkLengths sorts the catalog in place and rejects non-positive values
// and duplicates within Tolerance.
func checkLengths(lengths []float64) error {
	for _, v := range lengths {
		if v <= 0 {
			return errors.Validationf("Length values must be positive. Found '%g'.", v)
		}
	}
	sort.Float64s(lengths)
	for i := 1; i < len(lengths); i++ {
		if lengths[i]-lengths[i-1] < types.Tolerance {
			return errors.Validationf("Length values cannot contain duplicates: %g", lengths[i])
		}
	}
	return nil
}

// FormatRanges renders bands the way ParseGirthRanges reads them
func FormatRanges(ranges []types.GirthRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = formatNumber(r.Start) + "-" + formatNumber(r.End)
	}
	return strings.Join(parts, ", ")
}

// FormatLengths renders a catalog the way ParseLengths reads it
func FormatLengths(lengths []float64) string {
	parts := make([]string, len(lengths))
	for i, l := range lengths {
		parts[i] = formatNumber(l)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
