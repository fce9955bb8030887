package checker

import (
	"fmt"
	"sort"
	"strings"
)

// Category is a class of static-analysis finding that can fail validation.
type Category string

const (
	SyntaxError     Category = "syntax-error"
	UndefinedName   Category = "undefined-name"
	FatalParseError Category = "fatal-parse-error"
)

// DefaultFilter is the set of categories that gate a candidate fix.
// Style findings are never part of it.
var DefaultFilter = []Category{SyntaxError, UndefinedName, FatalParseError}

// flake8 code prefixes per category.
// E9: syntax / io errors, F63: invalid comparisons, F7: statement syntax, F82: undefined names.
var selectors = map[Category][]string{
	SyntaxError:     {"E9"},
	FatalParseError: {"F63", "F7"},
	UndefinedName:   {"F82"},
}

// ParseCategory converts a config string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := selectors[c]; !ok {
		return "", fmt.Errorf("unknown diagnostic category %q", s)
	}
	return c, nil
}

// ParseCategories converts a list of config strings, dropping duplicates.
func ParseCategories(ss []string) ([]Category, error) {
	seen := make(map[Category]bool, len(ss))
	out := make([]Category, 0, len(ss))
	for _, s := range ss {
		c, err := ParseCategory(s)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// Selectors returns the sorted flake8 --select codes for the given categories.
func Selectors(filter []Category) []string {
	var codes []string
	seen := map[string]bool{}
	for _, c := range filter {
		for _, code := range selectors[c] {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	sort.Strings(codes)
	return codes
}
