package sim

import (
	"errors"
	"fmt"
)

// LayerID identifies one traversable plane of the navigation surface.
type LayerID int

const (
	LayerGround    LayerID = iota // main floor
	LayerPortalIn                 // "in"-portal plane
	LayerPortalOut                // "out"-portal plane
	layerCount
)

func (l LayerID) String() string {
	switch l {
	case LayerGround:
		return "ground"
	case LayerPortalIn:
		return "portal-in"
	case LayerPortalOut:
		return "portal-out"
	default:
		return "unknown"
	}
}

// LayerSet is a small set of layer IDs, used for planner exclusions.
type LayerSet uint8

// NewLayerSet builds a set from the given layers.
func NewLayerSet(ls ...LayerID) LayerSet {
	var s LayerSet
	for _, l := range ls {
		s |= 1 << uint(l)
	}
	return s
}

// Has reports whether l is in the set.
func (s LayerSet) Has(l LayerID) bool { return s&(1<<uint(l)) != 0 }

// ErrDegenerateTopology marks a cell adjacency pattern the corner-offset
// table cannot represent. It is a content-authoring constraint: levels must
// be laid out without these patterns, and hitting one aborts level setup.
var ErrDegenerateTopology = errors.New("degenerate surface topology")

// boundaryPoly marks a gap (no polygon) in a vertex's neighbour fan.
const boundaryPoly = int32(-1)

// SurfaceVertex is a navigation vertex: a point plus the indices of the
// polygons around it in counter-clockwise order. boundaryPoly entries mark
// the outside.
type SurfaceVertex struct {
	Pos   Vec2
	Polys []int32
}

// SurfacePolygon is an ordered (counter-clockwise) loop of vertex indices.
type SurfacePolygon struct {
	Verts []int32
}

// SurfaceLayer is one traversable plane of polygons. A placeholder layer is
// a single degenerate triangle far outside the arena, standing in for an
// absent portal plane so layer indexing never needs a missing-layer branch.
type SurfaceLayer struct {
	Vertices    []SurfaceVertex
	Polygons    []SurfacePolygon
	Placeholder bool
}

// Surface is the complete multi-layer navigation surface for one level
// build. It is immutable once built; exclusion-set changes produce a whole
// new Surface rather than mutating this one.
type Surface struct {
	Layers   [layerCount]SurfaceLayer
	Stitches [layerCount][]Vec2 // portal-layer points coinciding with ground vertices
}

// cornerOffset picks the vertex displacement for a lattice corner from the
// {top-left, top, left, center} quadrant of the owning cell's mask. The
// table is empirically tuned so quad boundaries hug wall edges at concave
// corners. Two adjacency patterns cannot be represented with a single
// vertex per lattice point and are rejected.
func cornerOffset(m Mask) (float64, float64, error) {
	key := 0
	if m.Has(MaskTopLeft) {
		key |= 8
	}
	if m.Has(MaskTop) {
		key |= 4
	}
	if m.Has(MaskLeft) {
		key |= 2
	}
	if m.Has(MaskCenter) {
		key |= 1
	}
	switch key {
	case 0b1111:
		return 0, 0, nil
	case 0b1110:
		return -1, -1, nil
	case 0b1101:
		return 1, -1, nil
	case 0b1100:
		return 0, -1, nil
	case 0b1011:
		return -1, 1, nil
	case 0b1010:
		return -1, 0, nil
	case 0b1001:
		// Diagonal-only contact: the corner would need two vertices, one
		// per side, which breaks the lattice indexing.
		return 0, 0, ErrDegenerateTopology
	case 0b1000:
		return -1, -1, nil
	case 0b0111:
		return 1, 1, nil
	case 0b0110:
		// Same problem mirrored: top and left occupied with an open
		// diagonal between them.
		return 0, 0, ErrDegenerateTopology
	case 0b0101:
		return 1, 0, nil
	case 0b0100:
		return 1, -1, nil
	case 0b0011:
		return 0, 1, nil
	case 0b0010:
		return -1, 1, nil
	case 0b0001:
		return 1, 1, nil
	default: // 0b0000
		return 0, 0, nil
	}
}

// BuildSurface generates the navigation surface for a level with the given
// exclusion set (cells blocked by placed obstacles). The same level and
// exclusion set always produce a geometrically identical surface.
func BuildSurface(lv *Level, excluded map[CellCoord]bool) (*Surface, error) {
	w := lv.Cols()
	h := lv.Rows()
	stride := w + 1

	// Lattice vertex positions, shared by all three layers. Each row
	// contributes w+1 vertices (the extra one closes the row's right edge,
	// inset by one unit), then a final bottom row closes the grid.
	positions := make([]Vec2, 0, stride*(h+1))
	var ground, portalIn, portalOut []SurfacePolygon

	quad := func(c, r int) SurfacePolygon {
		return SurfacePolygon{Verts: []int32{
			int32(c + 1 + stride*r),
			int32(c + 1 + stride*(r+1)),
			int32(c + stride*(r+1)),
			int32(c + stride*r),
		}}
	}

	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			dx, dy, err := cornerOffset(lv.Mask(c, r))
			if err != nil {
				return nil, fmt.Errorf("cell (%d,%d): %w", c, r, err)
			}
			positions = append(positions, Vec2{
				X: float64(c)*cellPitch - 2 + dx,
				Y: float64(r)*cellPitch - 2 + dy,
			})

			switch lv.Cell(c, r).Kind {
			case CellPortalIn:
				portalIn = append(portalIn, quad(c, r))
			case CellPortalOut:
				portalOut = append(portalOut, quad(c, r))
			case CellEmpty:
			default:
				if excluded[CellCoord{c, r}] {
					continue
				}
				ground = append(ground, quad(c, r))
			}
		}
		dy := 0.0
		if r == 0 {
			dy = 1.0
		}
		positions = append(positions, Vec2{
			X: float64(w)*cellPitch - 2 - 1,
			Y: float64(r)*cellPitch - 2 + dy,
		})
	}
	for c := 0; c < w; c++ {
		m := lv.Mask(c, h-1)
		dx := 0.0
		if !m.Has(MaskCenter) {
			dx -= 1
		}
		if !m.Has(MaskLeft) && m.Has(MaskCenter) {
			dx += 1
		}
		positions = append(positions, Vec2{
			X: float64(c)*cellPitch - 2 + dx,
			Y: float64(h)*cellPitch - 2 - 1,
		})
	}
	positions = append(positions, Vec2{
		X: float64(w)*cellPitch - 2 - 1,
		Y: float64(h)*cellPitch - 2 - 1,
	})

	surf := &Surface{}
	layer, ok := finishLayer(ground, positions, stride)
	if !ok {
		return nil, fmt.Errorf("ground layer has no polygons: %w", ErrDegenerateTopology)
	}
	surf.Layers[LayerGround] = layer
	if l, ok := finishLayer(portalIn, positions, stride); ok {
		surf.Layers[LayerPortalIn] = l
	} else {
		surf.Layers[LayerPortalIn] = placeholderLayer()
	}
	if l, ok := finishLayer(portalOut, positions, stride); ok {
		surf.Layers[LayerPortalOut] = l
	} else {
		surf.Layers[LayerPortalOut] = placeholderLayer()
	}

	surf.stitchPortalLayers()
	return surf, nil
}

// finishLayer rebuilds per-vertex polygon fans from coordinates alone,
// orders them counter-clockwise and strips useless vertices. This is the
// build-then-discard step: the fan scratch data lives in the returned
// vertices, the lattice bookkeeping does not survive.
func finishLayer(polys []SurfacePolygon, positions []Vec2, stride int) (SurfaceLayer, bool) {
	if len(polys) == 0 {
		return SurfaceLayer{}, false
	}

	// Which polygons reference each lattice vertex.
	touching := make([][]int32, len(positions))
	for pi, poly := range polys {
		for _, vi := range poly.Verts {
			touching[vi] = append(touching[vi], int32(pi))
		}
	}

	// ccwQuadrants orders the four cells around a lattice corner
	// counter-clockwise. Each polygon is assigned to a quadrant by its
	// representative coordinate (first vertex) relative to the corner's
	// theoretical lattice position.
	vertices := make([]SurfaceVertex, len(positions))
	for vi, pos := range positions {
		theo := Vec2{
			X: float64(vi%stride)*cellPitch - 2,
			Y: float64(vi/stride)*cellPitch - 2,
		}
		fan := make([]int32, 0, 4)
		for q := 0; q < 4; q++ {
			found := boundaryPoly
			for _, pi := range touching[vi] {
				rep := positions[polys[pi].Verts[0]]
				var in bool
				switch q {
				case 0:
					in = rep.X > theo.X+1 && rep.Y < theo.Y-1
				case 1:
					in = rep.X > theo.X+1 && rep.Y >= theo.Y-1
				case 2:
					in = rep.X <= theo.X+1 && rep.Y >= theo.Y-1
				case 3:
					in = rep.X <= theo.X+1 && rep.Y < theo.Y-1
				}
				if in {
					found = pi
					break
				}
			}
			fan = append(fan, found)
		}
		fan = dedupAdjacent(fan)
		// Rotate one step so wraparound duplicates become adjacent, then
		// dedup again.
		fan = append(fan[1:], fan[0])
		fan = dedupAdjacent(fan)
		vertices[vi] = SurfaceVertex{Pos: pos, Polys: fan}
	}

	return stripUselessVertices(vertices, polys), true
}

// dedupAdjacent removes consecutive duplicate entries.
func dedupAdjacent(in []int32) []int32 {
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != in[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// stripUselessVertices drops vertices whose deduplicated neighbour fan has
// a single entry: lattice points inside empty regions (boundary only) and
// points surrounded on all sides by the same polygon. Both carry no turning
// information for the planner. Polygon loops are remapped to the surviving
// vertex indices.
func stripUselessVertices(vertices []SurfaceVertex, polys []SurfacePolygon) SurfaceLayer {
	remap := make([]int32, len(vertices))
	kept := make([]SurfaceVertex, 0, len(vertices))
	for vi, v := range vertices {
		if len(v.Polys) <= 1 {
			remap[vi] = -1
			continue
		}
		remap[vi] = int32(len(kept))
		kept = append(kept, v)
	}
	outPolys := make([]SurfacePolygon, len(polys))
	for pi, poly := range polys {
		verts := make([]int32, 0, len(poly.Verts))
		for _, vi := range poly.Verts {
			if remap[vi] >= 0 {
				verts = append(verts, remap[vi])
			}
		}
		outPolys[pi] = SurfacePolygon{Verts: verts}
	}
	return SurfaceLayer{Vertices: kept, Polygons: outPolys}
}

// placeholderLayer is the degenerate single-triangle layer used when a
// level defines no portal cells of a kind. It sits far outside any arena so
// no query can reach it.
func placeholderLayer() SurfaceLayer {
	return SurfaceLayer{
		Vertices: []SurfaceVertex{
			{Pos: Vec2{-150.0, -150.0}, Polys: []int32{0, boundaryPoly}},
			{Pos: Vec2{-149.99999, -150.0}, Polys: []int32{0, boundaryPoly}},
			{Pos: Vec2{-149.99999, -149.99999}, Polys: []int32{0, boundaryPoly}},
		},
		Polygons:    []SurfacePolygon{{Verts: []int32{0, 1, 2}}},
		Placeholder: true,
	}
}

// stitchPortalLayers records, for each non-placeholder portal layer, the
// points where one of its vertices coincides exactly with a ground-layer
// vertex. Those points are the zero-cost layer switches that make portals
// traversable.
func (s *Surface) stitchPortalLayers() {
	groundAt := make(map[Vec2]bool, len(s.Layers[LayerGround].Vertices))
	for _, v := range s.Layers[LayerGround].Vertices {
		groundAt[v.Pos] = true
	}
	for _, id := range []LayerID{LayerPortalIn, LayerPortalOut} {
		if s.Layers[id].Placeholder {
			continue
		}
		for _, v := range s.Layers[id].Vertices {
			if groundAt[v.Pos] {
				s.Stitches[id] = append(s.Stitches[id], v.Pos)
			}
		}
	}
}

// PolygonCount returns the number of non-degenerate polygons on a layer,
// the measure used to compare surface topology across rebuilds.
func (s *Surface) PolygonCount(l LayerID) int {
	n := 0
	for _, p := range s.Layers[l].Polygons {
		if len(p.Verts) >= 3 {
			n++
		}
	}
	return n
}
