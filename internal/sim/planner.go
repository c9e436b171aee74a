package sim

import (
	"container/heap"
)

// Planner answers shortest-path queries over one built Surface. It is
// immutable after construction; a surface rebuild produces a new Planner.
type Planner struct {
	surface *Surface
	// adjacency per layer, indexed by polygon.
	links [layerCount][][]portalLink
}

// polyRef addresses one polygon on one layer.
type polyRef struct {
	layer LayerID
	poly  int32
}

// portalLink is a traversable crossing from one polygon into another:
// either a shared edge within a layer, or a zero-width stitch point between
// a portal layer and the ground layer (seam).
type portalLink struct {
	to          polyRef
	left, right Vec2
	seam        bool
}

// NewPlanner indexes the surface's polygon adjacency: shared edges within
// each layer, plus cross-layer links at every stitch point.
func NewPlanner(s *Surface) *Planner {
	p := &Planner{surface: s}

	for id := LayerID(0); id < layerCount; id++ {
		layer := &s.Layers[id]
		p.links[id] = make([][]portalLink, len(layer.Polygons))
		if layer.Placeholder {
			continue
		}

		// Shared edges: key on the unordered vertex pair. For a polygon
		// wound counter-clockwise, crossing its directed edge (a,b) into
		// the neighbour puts b on the walker's left.
		type edgeUse struct {
			poly int32
			a, b int32
		}
		edges := make(map[[2]int32][]edgeUse)
		for pi, poly := range layer.Polygons {
			n := len(poly.Verts)
			if n < 3 {
				continue
			}
			for i := 0; i < n; i++ {
				a := poly.Verts[i]
				b := poly.Verts[(i+1)%n]
				key := [2]int32{a, b}
				if a > b {
					key = [2]int32{b, a}
				}
				edges[key] = append(edges[key], edgeUse{poly: int32(pi), a: a, b: b})
			}
		}
		for _, uses := range edges {
			if len(uses) != 2 {
				continue
			}
			for i, u := range uses {
				other := uses[1-i]
				p.links[id][u.poly] = append(p.links[id][u.poly], portalLink{
					to:    polyRef{id, other.poly},
					left:  layer.Vertices[u.b].Pos,
					right: layer.Vertices[u.a].Pos,
				})
			}
		}
	}

	// Stitch points join a portal layer to the ground layer wherever their
	// vertices coincide. The crossing degenerates to a point, which the
	// funnel pass turns into a mandatory waypoint.
	touching := func(id LayerID, at Vec2) []int32 {
		var out []int32
		layer := &s.Layers[id]
		for pi, poly := range layer.Polygons {
			for _, vi := range poly.Verts {
				if layer.Vertices[vi].Pos == at {
					out = append(out, int32(pi))
					break
				}
			}
		}
		return out
	}
	for _, id := range []LayerID{LayerPortalIn, LayerPortalOut} {
		for _, pt := range s.Stitches[id] {
			groundPolys := touching(LayerGround, pt)
			portalPolys := touching(id, pt)
			for _, g := range groundPolys {
				for _, q := range portalPolys {
					p.links[LayerGround][g] = append(p.links[LayerGround][g], portalLink{
						to: polyRef{id, q}, left: pt, right: pt, seam: true,
					})
					p.links[id][q] = append(p.links[id][q], portalLink{
						to: polyRef{LayerGround, g}, left: pt, right: pt, seam: true,
					})
				}
			}
		}
	}

	return p
}

// Plan returns the waypoint chain from from to to, restricted to layers not
// in excluded, or nil when no path exists under the current surface. The
// first waypoint is from itself and the last equals to exactly; intermediate
// entries are turning points only.
//
// delta is the avoidance delta: it widens the snap tolerance when locating
// an off-surface start or goal, and is charged as an extra crossing cost at
// every portal seam, steering high-delta agents away from contested
// doorways.
func (p *Planner) Plan(from, to Vec2, excluded LayerSet, delta float64) []Vec2 {
	start, ok := p.locate(from, excluded, delta)
	if !ok {
		return nil
	}
	goal, ok := p.locate(to, excluded, delta)
	if !ok {
		return nil
	}
	if start == goal {
		return []Vec2{from, to}
	}

	corridor := p.search(start, goal, from, to, excluded, delta)
	if corridor == nil {
		return nil
	}
	portals := make([]portalSeg, 0, len(corridor)+1)
	for _, link := range corridor {
		portals = append(portals, portalSeg{left: link.left, right: link.right})
	}
	portals = append(portals, portalSeg{left: to, right: to})
	return stringPull(from, to, portals)
}

// locate finds the polygon containing pt among non-excluded layers, ground
// layer first. When no polygon contains it and delta is positive, the
// nearest polygon within delta is used instead — this is what lets an agent
// stranded by a freshly placed obstacle still plan off its old footing.
func (p *Planner) locate(pt Vec2, excluded LayerSet, delta float64) (polyRef, bool) {
	bestDist := delta
	var best polyRef
	found := false
	for id := LayerID(0); id < layerCount; id++ {
		layer := &p.surface.Layers[id]
		if layer.Placeholder || excluded.Has(id) {
			continue
		}
		for pi, poly := range layer.Polygons {
			if len(poly.Verts) < 3 {
				continue
			}
			if containsPoint(layer, poly, pt) {
				return polyRef{id, int32(pi)}, true
			}
			if delta <= 0 {
				continue
			}
			if d := boundaryDist(layer, poly, pt); d <= bestDist {
				bestDist = d
				best = polyRef{id, int32(pi)}
				found = true
			}
		}
	}
	return best, found
}

// containsPoint tests a convex counter-clockwise polygon.
func containsPoint(layer *SurfaceLayer, poly SurfacePolygon, pt Vec2) bool {
	n := len(poly.Verts)
	for i := 0; i < n; i++ {
		a := layer.Vertices[poly.Verts[i]].Pos
		b := layer.Vertices[poly.Verts[(i+1)%n]].Pos
		if triArea2(a, b, pt) < -1e-9 {
			return false
		}
	}
	return true
}

// boundaryDist is the distance from pt to the polygon's boundary.
func boundaryDist(layer *SurfaceLayer, poly SurfacePolygon, pt Vec2) float64 {
	n := len(poly.Verts)
	best := -1.0
	for i := 0; i < n; i++ {
		a := layer.Vertices[poly.Verts[i]].Pos
		b := layer.Vertices[poly.Verts[(i+1)%n]].Pos
		if d := segDist(pt, a, b); best < 0 || d < best {
			best = d
		}
	}
	return best
}

// --- A* over polygon adjacency ---

type planNode struct {
	ref    polyRef
	pos    Vec2 // entry point into this polygon
	g, h   float64
	parent *planNode
	link   portalLink // crossing taken from parent into this polygon
	index  int        // heap index
}

type planQueue []*planNode

func (q planQueue) Len() int            { return len(q) }
func (q planQueue) Less(i, j int) bool  { return q[i].g+q[i].h < q[j].g+q[j].h }
func (q planQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *planQueue) Push(x interface{}) { n := x.(*planNode); n.index = len(*q); *q = append(*q, n) }
func (q *planQueue) Pop() interface{} {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

// search runs A* from start to goal and returns the corridor of crossings,
// or nil when the goal is unreachable. Crossing cost is measured between
// portal entry points (midpoints for shared edges, the point itself for
// seams); each seam crossing additionally pays the avoidance delta.
func (p *Planner) search(start, goal polyRef, from, to Vec2, excluded LayerSet, delta float64) []portalLink {
	root := &planNode{ref: start, pos: from, h: from.Dist(to)}
	open := &planQueue{root}
	heap.Init(open)
	bestG := map[polyRef]float64{start: 0}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*planNode)
		if cur.ref == goal {
			var corridor []portalLink
			for n := cur; n.parent != nil; n = n.parent {
				corridor = append(corridor, n.link)
			}
			for i, j := 0, len(corridor)-1; i < j; i, j = i+1, j-1 {
				corridor[i], corridor[j] = corridor[j], corridor[i]
			}
			return corridor
		}
		if g, ok := bestG[cur.ref]; ok && cur.g > g {
			continue
		}
		for _, link := range p.links[cur.ref.layer][cur.ref.poly] {
			if excluded.Has(link.to.layer) {
				continue
			}
			entry := link.left.Add(link.right).Scale(0.5)
			cost := cur.pos.Dist(entry)
			if link.seam {
				cost += delta
			}
			g := cur.g + cost
			if prev, ok := bestG[link.to]; ok && g >= prev {
				continue
			}
			bestG[link.to] = g
			heap.Push(open, &planNode{
				ref:    link.to,
				pos:    entry,
				g:      g,
				h:      entry.Dist(to),
				parent: cur,
				link:   link,
			})
		}
	}
	return nil
}

// --- funnel (string pulling) ---

type portalSeg struct {
	left, right Vec2
}

// stringPull runs the funnel algorithm over the portal corridor, emitting a
// waypoint each time the funnel collapses. Zero-width portals (layer seams)
// collapse it immediately, forcing a waypoint at the seam.
func stringPull(start, goal Vec2, portals []portalSeg) []Vec2 {
	pts := []Vec2{start}
	apex, left, right := start, start, start
	apexIdx, leftIdx, rightIdx := 0, 0, 0

	for i := 0; i < len(portals); i++ {
		pl, pr := portals[i].left, portals[i].right

		// Tighten the right side.
		if triArea2(apex, right, pr) <= 0 {
			if apex.Eq(right) || triArea2(apex, left, pr) > 0 {
				right, rightIdx = pr, i
			} else {
				// Right crossed over left: left becomes the new apex.
				pts = append(pts, left)
				apex, apexIdx = left, leftIdx
				left, right = apex, apex
				leftIdx, rightIdx = apexIdx, apexIdx
				i = apexIdx
				continue
			}
		}
		// Tighten the left side.
		if triArea2(apex, left, pl) >= 0 {
			if apex.Eq(left) || triArea2(apex, right, pl) < 0 {
				left, leftIdx = pl, i
			} else {
				pts = append(pts, right)
				apex, apexIdx = right, rightIdx
				left, right = apex, apex
				leftIdx, rightIdx = apexIdx, apexIdx
				i = apexIdx
				continue
			}
		}
	}
	if !pts[len(pts)-1].Eq(goal) {
		pts = append(pts, goal)
	}
	return dedupWaypoints(pts)
}

// dedupWaypoints drops consecutive coincident points.
func dedupWaypoints(in []Vec2) []Vec2 {
	out := in[:0]
	for i, p := range in {
		if i == 0 || !p.Eq(in[i-1]) {
			out = append(out, p)
		}
	}
	return out
}
