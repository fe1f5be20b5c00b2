// Package codec packs lists and dictionaries into single text columns.
//
// Elements are joined with Delimiter. Two-level values (the option sets of a
// subscription form, checkbox selections) join their inner elements with
// OptionDelimiter first.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	Delimiter       = "#,#"
	OptionDelimiter = "#;#"
)

var (
	ErrEncoding = errors.New("codec: encoding error")
	ErrDecoding = errors.New("codec: decoding error")
)

// join concatenates items with delim and fails when the result could not be
// split back into the same items. An element may not contain delim, and an
// element followed by delim may not end with a prefix of delim that, together
// with the delimiter after it, would match delim earlier.
// When strict is set, the single-empty-element list is rejected too, since it
// shares the empty encoding with the empty list.
func join(items []string, delim string, strict bool) (string, error) {
	if strict && len(items) == 1 && items[0] == "" {
		return "", fmt.Errorf("%w: a single empty element cannot be told apart from an empty list", ErrEncoding)
	}
	for i, item := range items {
		if strings.Contains(item, delim) {
			return "", fmt.Errorf("%w: element %d contains reserved delimiter %q", ErrEncoding, i, delim)
		}
		if i == len(items)-1 {
			continue
		}
		for k := 1; k < len(delim); k++ {
			if strings.HasSuffix(item, delim[:k]) && strings.HasPrefix(delim, delim[k:]) {
				return "", fmt.Errorf("%w: element %d ends with %q and would merge into the delimiter", ErrEncoding, i, delim[:k])
			}
		}
	}
	return strings.Join(items, delim), nil
}

func split(s, delim string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, delim)
}

// splitN splits s expecting exactly n elements. With n == 1 an empty string
// is the single empty element.
func splitN(s, delim string, n int) ([]string, error) {
	if n == 1 && s == "" {
		return []string{""}, nil
	}
	parts := split(s, delim)
	if len(parts) != n {
		return nil, fmt.Errorf("%w: expected %d elements, found %d", ErrDecoding, n, len(parts))
	}
	return parts, nil
}

// EncodeStringList joins items with Delimiter. A nil or empty list encodes to "".
func EncodeStringList(items []string) (string, error) {
	return join(items, Delimiter, true)
}

// DecodeStringList is the inverse of EncodeStringList.
func DecodeStringList(s string) []string {
	return split(s, Delimiter)
}

// EncodeStringListN encodes a list whose length is known to the reader, such
// as one aligned with a form's questions. Unlike EncodeStringList it accepts a
// single empty element.
func EncodeStringListN(items []string) (string, error) {
	return join(items, Delimiter, false)
}

// DecodeStringListN decodes a list that must hold exactly n elements.
func DecodeStringListN(s string, n int) ([]string, error) {
	return splitN(s, Delimiter, n)
}

func EncodeNumberList(nums []float64) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = formatNumber(n)
	}
	return strings.Join(parts, Delimiter)
}

func DecodeNumberList(s string) ([]float64, error) {
	parts := split(s, Delimiter)
	nums := make([]float64, len(parts))
	for i, p := range parts {
		n, err := parseNumber(p)
		if err != nil {
			return nil, err
		}
		nums[i] = n
	}
	return nums, nil
}

func EncodeBoolList(flags []bool) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = strconv.FormatBool(f)
	}
	return strings.Join(parts, Delimiter)
}

func DecodeBoolList(s string) ([]bool, error) {
	parts := split(s, Delimiter)
	flags := make([]bool, len(parts))
	for i, p := range parts {
		f, err := parseBool(p)
		if err != nil {
			return nil, err
		}
		flags[i] = f
	}
	return flags, nil
}

// EncodeStringDict interleaves keys and values in ascending key order.
func EncodeStringDict(dict map[string]string) (string, error) {
	flat := make([]string, 0, len(dict)*2)
	for _, k := range sortedKeys(dict) {
		flat = append(flat, k, dict[k])
	}
	return join(flat, Delimiter, false)
}

func DecodeStringDict(s string) (map[string]string, error) {
	flat, err := splitPairs(s)
	if err != nil {
		return nil, err
	}
	dict := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		dict[flat[i]] = flat[i+1]
	}
	return dict, nil
}

func EncodeNumberDict(dict map[string]float64) (string, error) {
	flat := make([]string, 0, len(dict)*2)
	for _, k := range sortedKeys(dict) {
		flat = append(flat, k, formatNumber(dict[k]))
	}
	return join(flat, Delimiter, false)
}

func DecodeNumberDict(s string) (map[string]float64, error) {
	flat, err := splitPairs(s)
	if err != nil {
		return nil, err
	}
	dict := make(map[string]float64, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		n, err := parseNumber(flat[i+1])
		if err != nil {
			return nil, err
		}
		dict[flat[i]] = n
	}
	return dict, nil
}

func EncodeBoolDict(dict map[string]bool) (string, error) {
	flat := make([]string, 0, len(dict)*2)
	for _, k := range sortedKeys(dict) {
		flat = append(flat, k, strconv.FormatBool(dict[k]))
	}
	return join(flat, Delimiter, false)
}

func DecodeBoolDict(s string) (map[string]bool, error) {
	flat, err := splitPairs(s)
	if err != nil {
		return nil, err
	}
	dict := make(map[string]bool, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		f, err := parseBool(flat[i+1])
		if err != nil {
			return nil, err
		}
		dict[flat[i]] = f
	}
	return dict, nil
}

// EncodeOptionSets packs one option list per question: options are joined
// with OptionDelimiter, questions with Delimiter.
func EncodeOptionSets(sets [][]string) (string, error) {
	outer := make([]string, len(sets))
	for i, set := range sets {
		inner, err := join(set, OptionDelimiter, true)
		if err != nil {
			return "", fmt.Errorf("question %d: %w", i, err)
		}
		outer[i] = inner
	}
	return join(outer, Delimiter, false)
}

// DecodeOptionSets decodes the option lists of exactly n questions.
func DecodeOptionSets(s string, n int) ([][]string, error) {
	outer, err := splitN(s, Delimiter, n)
	if err != nil {
		return nil, err
	}
	sets := make([][]string, len(outer))
	for i, inner := range outer {
		sets[i] = split(inner, OptionDelimiter)
	}
	return sets, nil
}

// EncodeSelections packs the options picked for a checkbox question.
func EncodeSelections(selected []string) (string, error) {
	return join(selected, OptionDelimiter, true)
}

func DecodeSelections(s string) []string {
	return split(s, OptionDelimiter)
}

func splitPairs(s string) ([]string, error) {
	flat := split(s, Delimiter)
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: dictionary has an odd number of tokens (%d)", ErrDecoding, len(flat))
	}
	return flat, nil
}

func sortedKeys[V any](dict map[string]V) []string {
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func parseNumber(s string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrDecoding, s)
	}
	return n, nil
}

func parseBool(s string) (bool, error) {
	f, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("%w: %q is not a boolean", ErrDecoding, s)
	}
	return f, nil
}
