package cmd

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sample-calibrator/pkg/geometry"
)

// parsePair parses "x,y" into two floats.
func parsePair(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected x,y but got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad x in %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad y in %q: %w", s, err)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, 0, fmt.Errorf("expected finite x,y but got %q", s)
	}
	return x, y, nil
}

func parseFramePoints(values []string) ([]geometry.FramePoint, error) {
	out := make([]geometry.FramePoint, 0, len(values))
	for _, v := range values {
		x, y, err := parsePair(v)
		if err != nil {
			return nil, err
		}
		out = append(out, geometry.FramePoint{X: x, Y: y})
	}
	return out, nil
}
