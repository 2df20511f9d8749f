package audit

import (
	"strconv"
	"strings"
)

// CompareReference orders dotted item references numerically per segment,
// so "1.2" < "1.10" < "2.1". A reference sorts before its own children.
// Segments that are not numbers sort after numeric ones and compare as text.
func CompareReference(a, b string) int {
	as := strings.Split(strings.TrimSpace(a), ".")
	bs := strings.Split(strings.TrimSpace(b), ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}

func compareSegment(a, b string) int {
	an, aErr := strconv.Atoi(strings.TrimSpace(a))
	bn, bErr := strconv.Atoi(strings.TrimSpace(b))
	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
