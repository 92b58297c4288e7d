package manken

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxRangePages is the most indices ParsePageRange returns.
const MaxRangePages = 100000

// ParsePageRange converts a 1-based page list such as "1-3,5" to 0-based
// indices in the order written. Ranges may run backwards ("5-3") and
// pages may repeat. A list selecting more than MaxRangePages pages is an
// error.
func ParsePageRange(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty page range")
	}

	var indices []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := pageNumber(lo)
		if err != nil {
			return nil, err
		}
		last := first
		if isRange {
			if last, err = pageNumber(hi); err != nil {
				return nil, err
			}
		}
		step, span := 1, last-first+1
		if last < first {
			step, span = -1, first-last+1
		}
		if len(indices)+span > MaxRangePages {
			return nil, fmt.Errorf("page range %q selects more than %d pages", s, MaxRangePages)
		}
		for n := first; ; n += step {
			indices = append(indices, n-1)
			if n == last {
				break
			}
		}
	}
	return indices, nil
}

func pageNumber(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("page numbers start at 1, got %d", n)
	}
	return n, nil
}
