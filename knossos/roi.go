package knossos

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-knossos/internal/grid"
)

// Range is a half-open element range [Start, Stop) along one axis.
type Range = grid.Range

// ROI is a region of interest: one Range per axis in (z, y, x) order.
type ROI = grid.Box

// Coord is a block coordinate, (z, y, x), in block units.
type Coord = grid.Coord

// checkROI returns a *RangeError for the first axis of roi that does not
// satisfy 0 <= start < stop <= shape.
func checkROI(roi ROI, shape [grid.NDims]int) error {
	for d, r := range roi {
		if r.Start < 0 || r.Stop <= r.Start || r.Stop > shape[d] {
			return &RangeError{Axis: d, Range: r, Extent: shape[d]}
		}
	}
	return nil
}

// ParseROI parses a comma separated region expression against a dataset
// shape, for example "100:200, 0:128, :".
//
// Each term is "start:stop", where either bound may be omitted, or a single
// index i meaning "i:i+1". Negative values count from the end of the axis.
// Missing trailing terms select the whole axis. The result is not checked
// against the shape; Read does that.
func ParseROI(expr string, shape [grid.NDims]int) (ROI, error) {
	var roi ROI
	for d := range roi {
		roi[d] = Range{Start: 0, Stop: shape[d]}
	}

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return roi, nil
	}

	terms := strings.Split(expr, ",")
	if len(terms) > grid.NDims {
		return roi, errors.Errorf("roi %q has %d terms, want at most %d", expr, len(terms), grid.NDims)
	}
	for d, term := range terms {
		r, err := parseRange(strings.TrimSpace(term), shape[d])
		if err != nil {
			return roi, errors.Wrapf(err, "roi axis %d", d)
		}
		roi[d] = r
	}
	return roi, nil
}

func parseRange(term string, extent int) (Range, error) {
	if !strings.Contains(term, ":") {
		i, err := parseIndex(term, extent)
		if err != nil {
			return Range{}, err
		}
		return Range{Start: i, Stop: i + 1}, nil
	}

	parts := strings.Split(term, ":")
	if len(parts) != 2 {
		return Range{}, errors.Errorf("invalid range %q: steps are not supported", term)
	}

	r := Range{Start: 0, Stop: extent}
	if s := strings.TrimSpace(parts[0]); s != "" {
		i, err := parseIndex(s, extent)
		if err != nil {
			return Range{}, err
		}
		r.Start = i
	}
	if s := strings.TrimSpace(parts[1]); s != "" {
		i, err := parseIndex(s, extent)
		if err != nil {
			return Range{}, err
		}
		r.Stop = i
	}
	return r, nil
}

func parseIndex(s string, extent int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid index %q", s)
	}
	if i < 0 {
		i += extent
	}
	return i, nil
}
