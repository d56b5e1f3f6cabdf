package media

import "math"

// FillDimensions scales (width, height) so that both sides are at least
// edge, keeping the aspect ratio. The result is never smaller than 1x1 and
// never overflows uint32: when one side would, it is pinned to MaxUint32 and
// the other side is scaled by the same factor.
func FillDimensions(width, height, edge uint32) (uint32, uint32) {
	w, h := float64(width), float64(height)
	ratio := math.Max(float64(edge)/w, float64(edge)/h)

	nw := math.Max(math.Round(w*ratio), 1)
	nh := math.Max(math.Round(h*ratio), 1)

	switch {
	case nw > math.MaxUint32:
		r := math.MaxUint32 / w
		return math.MaxUint32, clampDim(math.Round(h * r))
	case nh > math.MaxUint32:
		r := math.MaxUint32 / h
		return clampDim(math.Round(w * r)), math.MaxUint32
	default:
		return uint32(nw), uint32(nh)
	}
}

func clampDim(v float64) uint32 {
	switch {
	case v < 1:
		return 1
	case v > math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(v)
	}
}
