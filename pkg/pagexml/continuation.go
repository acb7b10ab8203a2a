package pagexml

import (
	"math"
	"sort"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
)

// LayoutConfig holds the thresholds of the text line continuation test.
type LayoutConfig struct {
	MaxAngleDiff   float64 // maximum baseline angle difference, radians
	MaxHorizIoU    float64 // maximum IoU of the projections along the text direction
	MinProlongFact float64 // minimum prolongation factor for a join
	ProlongAlpha   float64 // weight of baseline alignment, 1-ProlongAlpha for coords alignment
	RecurseFactor  float64 // threshold decay applied when splitting overlapping groups
	MaxDepth       int     // maximum number of splitting rounds
	FakeBaseline   bool    // use the bottom edge of Coords for lines without Baseline
}

// DefaultLayoutConfig returns the empirically tuned thresholds.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		MaxAngleDiff:   math.Pi / 8,
		MaxHorizIoU:    0.1,
		MinProlongFact: 0.5,
		ProlongAlpha:   0.8,
		RecurseFactor:  0.9,
		MaxDepth:       8,
	}
}

func (c LayoutConfig) stricter() LayoutConfig {
	c.MaxAngleDiff *= c.RecurseFactor
	c.MaxHorizIoU *= c.RecurseFactor
	c.MinProlongFact /= c.RecurseFactor
	return c
}

// LineGroup is a set of text lines that continue one another.
type LineGroup struct {
	Lines []int   // indices of the input lines in reading order
	Score float64 // average prolongation factor of the joins
}

// lineGeom is the geometry of a single segment text line. coords is in
// TL, TR, BR, BL order relative to the baseline direction.
type lineGeom struct {
	base   [2]geom.Point
	coords [4]geom.Point
	angle  float64
	length float64
}

func (l lineGeom) dir() geom.Point { return geom.Direction(l.angle) }

func lineGeoms(op string, lines []*etree.Element, fakeBaseline bool) ([]lineGeom, error) {
	out := make([]lineGeom, len(lines))
	for i, line := range lines {
		id := GetAttr(line, "id")
		coords := Points(line, ElemCoords)
		if len(coords) != 4 {
			return nil, structuref(op, "expected Coords of line %s to have exactly four points", id)
		}
		base := Points(line, ElemBaseline)
		if base == nil && fakeBaseline {
			base = []geom.Point{coords[3], coords[2]}
		}
		if len(base) != 2 {
			return nil, structuref(op, "expected Baseline of line %s to have exactly two points", id)
		}
		l := lineGeom{base: [2]geom.Point{base[0], base[1]}}
		copy(l.coords[:], coords)
		l.angle = geom.BaselineOrientation(base)
		l.length = geom.BaselineLength(base)
		if math.IsNaN(l.angle) {
			return nil, structuref(op, "baseline of line %s has zero length", id)
		}
		out[i] = l
	}
	return out, nil
}

// TestTextLineContinuation groups single segment text lines (two point
// Baseline, four point Coords) that are continuations of each other.
// Lines not in any group are omitted from the result.
func (p *PageXML) TestTextLineContinuation(lines []*etree.Element, cfg LayoutConfig) ([]LineGroup, error) {
	ls, err := lineGeoms("TestTextLineContinuation", lines, cfg.FakeBaseline)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(ls))
	for i := range idx {
		idx[i] = i
	}
	return joinGroups(ls, idx, cfg, 0), nil
}

// joinGroups merges qualifying pairs among idx into groups. Groups of more
// than two lines that overlap along the text direction are split by
// recursing with stricter thresholds; lines that end up in no subgroup are
// dropped.
func joinGroups(ls []lineGeom, idx []int, cfg LayoutConfig, depth int) []LineGroup {
	var groups [][]int
	var scores [][]float64
	var firsts [][2]int

	find := func(k int) int {
		for g, members := range groups {
			for _, v := range members {
				if v == k {
					return g
				}
			}
		}
		return -1
	}

	for _, n := range idx {
		for _, m := range idx {
			if n == m {
				continue
			}
			fact, ok := prolongation(ls[n], ls[m], cfg)
			if !ok {
				continue
			}
			gn, gm := find(n), find(m)
			switch {
			case gn < 0 && gm < 0:
				groups = append(groups, []int{n, m})
				scores = append(scores, []float64{fact})
				firsts = append(firsts, [2]int{n, m})
			case gm < 0:
				groups[gn] = append(groups[gn], m)
				scores[gn] = append(scores[gn], fact)
			case gn < 0:
				groups[gm] = append(groups[gm], n)
				scores[gm] = append(scores[gm], fact)
			case gn != gm:
				groups[gn] = append(groups[gn], groups[gm]...)
				scores[gn] = append(append(scores[gn], scores[gm]...), fact)
				groups = append(groups[:gm], groups[gm+1:]...)
				scores = append(scores[:gm], scores[gm+1:]...)
				firsts = append(firsts[:gm], firsts[gm+1:]...)
			default:
				scores[gn] = append(scores[gn], fact)
			}
		}
	}

	var out []LineGroup
	for g, members := range groups {
		if len(members) > 2 {
			dir := groupDirection(ls, members)
			if maxPairIoU(ls, members, dir) > cfg.MaxHorizIoU && depth < cfg.MaxDepth {
				out = append(out, joinGroups(ls, members, cfg.stricter(), depth+1)...)
				continue
			}
			sortAlong(ls, members, dir, firsts[g])
		}
		out = append(out, LineGroup{Lines: members, Score: mean(scores[g])})
	}
	return out
}

// prolongation tests whether line m continues line n and returns the
// prolongation factor of the pair.
func prolongation(n, m lineGeom, cfg LayoutConfig) (float64, bool) {
	if math.Abs(geom.AngleDiff(n.angle, m.angle)) > cfg.MaxAngleDiff {
		return 0, false
	}
	dir := n.dir().Mul(n.length).Add(m.dir().Mul(m.length))
	if dir.Norm() == 0 {
		return 0, false
	}
	dir = dir.Normalize()
	pn := geom.Project1D(n.base[:], dir, 0)
	pm := geom.Project1D(m.base[:], dir, 0)
	if pn[0] >= pm[0] {
		return 0, false
	}
	if geom.IoU1D(pn[0], pn[1], pm[0], pm[1]) > cfg.MaxHorizIoU {
		return 0, false
	}

	bfact := 0.5 * (baselineAlignment(n.base, m.base[0], m.coords[0], m.coords[3]) +
		baselineAlignment(m.base, n.base[1], n.coords[1], n.coords[2]))
	cfact := 0.5 * (edgeOverlap(n.coords, m.coords[0], m.coords[3]) +
		edgeOverlap(m.coords, n.coords[1], n.coords[2]))
	fact := cfg.ProlongAlpha*bfact + (1-cfg.ProlongAlpha)*cfact
	if fact < cfg.MinProlongFact {
		return 0, false
	}
	return fact, true
}

// baselineAlignment extends base to the edge e0-e1 of the other line and
// scores how close the crossing is to target, that line's baseline end
// point on that edge, relative to the edge length.
func baselineAlignment(base [2]geom.Point, target, e0, e1 geom.Point) float64 {
	p, ok := geom.SegmentIntersection(base[0], base[1], e0, e1)
	if !ok || geom.PointRelativeToSegment(e0, e1, p) != geom.OnSegment {
		return 0
	}
	el := e1.Sub(e0).Norm()
	if el == 0 {
		return 0
	}
	return math.Max(0, 1-p.Sub(target).Norm()/el)
}

// edgeOverlap extends the top and bottom sides of coords to the edge e0-e1
// of the other line and returns the IoU of the span they cut with the edge.
func edgeOverlap(coords [4]geom.Point, e0, e1 geom.Point) float64 {
	ed := e1.Sub(e0)
	l2 := ed.Dot(ed)
	if l2 == 0 {
		return 0
	}
	top, ok1 := geom.SegmentIntersection(coords[0], coords[1], e0, e1)
	bot, ok2 := geom.SegmentIntersection(coords[3], coords[2], e0, e1)
	if !ok1 || !ok2 {
		return 0
	}
	t0 := top.Sub(e0).Dot(ed) / l2
	t1 := bot.Sub(e0).Dot(ed) / l2
	return geom.IoU1D(0, 1, t0, t1)
}

func groupDirection(ls []lineGeom, members []int) geom.Point {
	var d geom.Point
	for _, k := range members {
		d = d.Add(ls[k].dir().Mul(ls[k].length))
	}
	if d.Norm() == 0 {
		return geom.Point{X: 1}
	}
	return d.Normalize()
}

func maxPairIoU(ls []lineGeom, members []int, dir geom.Point) float64 {
	var best float64
	for i, a := range members {
		pa := geom.Project1D(ls[a].base[:], dir, 0)
		for _, b := range members[i+1:] {
			pb := geom.Project1D(ls[b].base[:], dir, 0)
			best = math.Max(best, geom.IoU1D(pa[0], pa[1], pb[0], pb[1]))
		}
	}
	return best
}

// sortAlong orders members by the projection of their baseline start on dir,
// reversed if that would put the group's first joined pair out of order.
func sortAlong(ls []lineGeom, members []int, dir geom.Point, first [2]int) {
	proj := func(k int) float64 {
		return geom.Project1D(ls[k].base[:1], dir, 0)[0]
	}
	sort.SliceStable(members, func(i, j int) bool {
		return proj(members[i]) < proj(members[j])
	})
	pos := make(map[int]int, len(members))
	for i, k := range members {
		pos[k] = i
	}
	if pos[first[0]] > pos[first[1]] {
		for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
			members[i], members[j] = members[j], members[i]
		}
	}
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
