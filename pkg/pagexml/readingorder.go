package pagexml

import (
	"sort"

	"github.com/beevik/etree"
	"github.com/gardar/pagexml/pkg/geom"
)

// GetTextLinesReadingOrder returns a permutation of the indices of lines in
// reading order. Lines are first joined into continuation groups; groups
// and remaining single lines are then stacked along the direction
// perpendicular to the dominant baseline direction.
func (p *PageXML) GetTextLinesReadingOrder(lines []*etree.Element, cfg LayoutConfig) ([]int, error) {
	ls, err := lineGeoms("GetTextLinesReadingOrder", lines, cfg.FakeBaseline)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(ls))
	for i := range idx {
		idx[i] = i
	}
	groups := joinGroups(ls, idx, cfg, 0)

	grouped := make([]bool, len(ls))
	for _, g := range groups {
		for _, k := range g.Lines {
			grouped[k] = true
		}
	}
	for k := range ls {
		if !grouped[k] {
			groups = append(groups, LineGroup{Lines: []int{k}})
		}
	}

	dir := groupDirection(ls, idx)
	down := geom.Point{X: -dir.Y, Y: dir.X}
	pos := make([]float64, len(groups))
	for i, g := range groups {
		pos[i] = groupCentroid(ls, g.Lines).Dot(down)
	}
	order := make([]int, len(groups))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pos[order[a]] < pos[order[b]]
	})

	out := make([]int, 0, len(ls))
	for _, g := range order {
		out = append(out, groups[g].Lines...)
	}
	return out, nil
}

// groupCentroid is the baseline length weighted mean of the baseline
// midpoints of members.
func groupCentroid(ls []lineGeom, members []int) geom.Point {
	var c geom.Point
	var w float64
	for _, k := range members {
		mid := ls[k].base[0].Add(ls[k].base[1]).Mul(0.5)
		c = c.Add(mid.Mul(ls[k].length))
		w += ls[k].length
	}
	if w == 0 {
		return c
	}
	return c.Mul(1 / w)
}

// SortTextLines reorders the TextLine children of a region into reading
// order.
func (p *PageXML) SortTextLines(region *etree.Element, cfg LayoutConfig) error {
	if !NodeIs(region, ElemTextRegion) {
		return structuref("SortTextLines", "expected a %s node", ElemTextRegion)
	}
	lines := childrenNamed(region, ElemTextLine)
	if len(lines) < 2 {
		return nil
	}
	order, err := p.GetTextLinesReadingOrder(lines, cfg)
	if err != nil {
		return err
	}
	if first := lines[order[0]]; first != lines[0] {
		if err := p.MoveElement(first, lines[0], Before); err != nil {
			return err
		}
	}
	for i := 1; i < len(order); i++ {
		if err := p.MoveElement(lines[order[i]], lines[order[i-1]], After); err != nil {
			return err
		}
	}
	return nil
}
