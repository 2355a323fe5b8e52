package keeprange

import (
	"sort"

	errc "github.com/intervju/skriba/internal/pkg/err"
	"github.com/intervju/skriba/internal/pkg/persistence"
)

// Tolerance is the max gap in seconds absorbed when merging near
// contiguous ranges
const Tolerance = 0.05

// Range is a kept audio interval in seconds
type Range struct {
	Start float64
	End   float64
}

// Compute turns per word inclusion flags into the minimal set of
// disjoint ranges to keep. A segment without word data is kept or
// dropped as a whole. Everything excluded is an error
func Compute(segments []persistence.Segment, words []persistence.Word) ([]Range, error) {
	bySegment := make(map[string][]persistence.Word)
	for _, w := range words {
		bySegment[w.SegmentID] = append(bySegment[w.SegmentID], w)
	}
	res := make([]Range, 0)
	for _, s := range segments {
		sw := bySegment[s.ID]
		if len(sw) == 0 {
			res = append(res, Range{Start: s.Start, End: s.End})
			continue
		}
		sort.Slice(sw, func(i, j int) bool { return sw[i].Index < sw[j].Index })
		res = append(res, segmentRanges(sw)...)
	}
	res = MergeRanges(res)
	if len(res) == 0 {
		return nil, errc.Validation("all audio is excluded")
	}
	return res, nil
}

// segmentRanges accumulates runs of consecutive included words
func segmentRanges(words []persistence.Word) []Range {
	res := make([]Range, 0)
	open := false
	var current Range
	for _, w := range words {
		if !w.Included {
			if open {
				res = append(res, current)
				open = false
			}
			continue
		}
		if !open {
			current = Range{Start: w.Start, End: w.End}
			open = true
			continue
		}
		current.End = w.End
	}
	if open {
		res = append(res, current)
	}
	return res
}

// MergeRanges sorts ranges by start and joins any two with a gap
// within the tolerance
func MergeRanges(ranges []Range) []Range {
	if len(ranges) == 0 {
		return ranges
	}
	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	res := make([]Range, 0, len(sorted))
	current := sorted[0]
	for _, r := range sorted[1:] {
		if r.Start-current.End <= Tolerance {
			if r.End > current.End {
				current.End = r.End
			}
			continue
		}
		res = append(res, current)
		current = r
	}
	res = append(res, current)
	return res
}
