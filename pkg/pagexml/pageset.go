package pagexml

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParsePageSet parses a 1-based page selection such as "1-3,5" for a
// document of total pages and returns the selected 0-based indices in
// ascending order. An empty selection selects all pages.
func ParsePageSet(s string, total int) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		all := make([]int, total)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid page set %q: %w", s, err)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(hi); err != nil {
				return nil, fmt.Errorf("invalid page set %q: %w", s, err)
			}
		}
		if a < 1 || b < a || b > total {
			return nil, fmt.Errorf("invalid page range %q for %d pages", part, total)
		}
		for n := a; n <= b; n++ {
			seen[n-1] = true
		}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}
