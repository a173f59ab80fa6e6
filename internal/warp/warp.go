// Package warp builds and applies piecewise-linear frequency warp maps
// between spectral envelopes.
package warp

// Point is a single warp control node: source bin -> destination bin.
type Point struct {
	Src float64
	Dst float64
}

const segmentEps = 1e-4

// BuildMap constructs a WarpMap of length numBins from a set of control
// nodes. The node list is anchored at both ends (prepending {0,0} and
// appending {numBins-1,numBins-1} if missing) and sorted by ascending
// Dst before the piecewise-linear map is built, so the result
// satisfies map[0]==0 and map[numBins-1]==numBins-1 for an empty node
// list and for any list whose nodes at the ends (if any) map 0 to 0
// and numBins-1 to numBins-1. Whether an anchor is added depends only
// on the Dst of the first and last node given, so a node given at
// Dst 0 (or Dst numBins-1) keeps its own Src there. This convenience
// form allocates; the
// audio-thread path uses BuildMapInto instead.
func BuildMap(numBins int, nodes []Point) []float64 {
	pts := anchor(numBins, nodes)
	out := make([]float64, numBins)
	return BuildMapInto(out, pts)
}

// BuildMapInto fills dst (length numBins) from nodes, which the caller
// must have already anchored (first node Dst==0, last node
// Dst==numBins-1) — the Spectral Processor always constructs its node
// list this way, so no further anchoring or allocation is needed here.
// nodes is sorted in place by ascending Dst. Returns dst.
func BuildMapInto(dst []float64, nodes []Point) []float64 {
	sortByDst(nodes)
	numBins := len(dst)

	seg := 0
	for i := 0; i < numBins; i++ {
		fi := float64(i)
		for seg < len(nodes)-2 && fi > nodes[seg+1].Dst {
			seg++
		}
		p0, p1 := nodes[seg], nodes[seg+1]

		width := p1.Dst - p0.Dst
		var src float64
		if width < segmentEps {
			src = p0.Src
		} else {
			src = p0.Src + (fi-p0.Dst)/width*(p1.Src-p0.Src)
		}

		if src < 0 {
			src = 0
		} else if src > float64(numBins-1) {
			src = float64(numBins - 1)
		}
		dst[i] = src
	}
	return dst
}

// Process resamples srcEnv through warpMap with linear interpolation,
// writing into dst (which must have the same length as warpMap) and
// returning it.
func Process(warpMap []float64, srcEnv, dst []float64) []float64 {
	n := len(srcEnv)
	for i, idx := range warpMap {
		lo := int(idx)
		if lo >= n-1 {
			dst[i] = srcEnv[n-1]
			continue
		}
		frac := idx - float64(lo)
		hi := lo + 1
		if hi > n-1 {
			hi = n - 1
		}
		dst[i] = srcEnv[lo]*(1-frac) + srcEnv[hi]*frac
	}
	return dst
}

func anchor(numBins int, nodes []Point) []Point {
	pts := make([]Point, 0, len(nodes)+2)

	needHead := len(nodes) == 0 || nodes[0].Dst > segmentEps
	if needHead {
		pts = append(pts, Point{Src: 0, Dst: 0})
	}
	pts = append(pts, nodes...)

	last := float64(numBins - 1)
	needTail := len(nodes) == 0 || nodes[len(nodes)-1].Dst < last
	if needTail {
		pts = append(pts, Point{Src: last, Dst: last})
	}
	return pts
}

// sortByDst is a small stable insertion sort: node counts are tiny
// (typically <20) so an allocation-free O(n^2) sort beats pulling in
// sort.Slice's reflection-based comparator on the audio thread.
func sortByDst(pts []Point) {
	for i := 1; i < len(pts); i++ {
		v := pts[i]
		j := i - 1
		for j >= 0 && pts[j].Dst > v.Dst {
			pts[j+1] = pts[j]
			j--
		}
		pts[j+1] = v
	}
}
