package sim

import "math"

// Vec2 is a 2D point or vector in arena world units.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }
func (v Vec2) Len() float64         { return math.Sqrt(v.X*v.X + v.Y*v.Y) }
func (v Vec2) LenSq() float64       { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Dist(o Vec2) float64  { return v.Sub(o).Len() }

// Norm returns the unit vector, or the zero vector for near-zero input.
func (v Vec2) Norm() Vec2 {
	l := v.Len()
	if l < 1e-9 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Eq reports coordinate equality within a small tolerance.
func (v Vec2) Eq(o Vec2) bool {
	return math.Abs(v.X-o.X) < 1e-9 && math.Abs(v.Y-o.Y) < 1e-9
}

// triArea2 is twice the signed area of triangle (a,b,c).
// Positive when c lies to the left of the directed line a→b.
func triArea2(a, b, c Vec2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (c.X-a.X)*(b.Y-a.Y)
}

// segDist returns the distance from point p to segment (a,b).
func segDist(p, a, b Vec2) float64 {
	ab := b.Sub(a)
	l2 := ab.LenSq()
	if l2 < 1e-18 {
		return p.Dist(a)
	}
	t := (p.Sub(a).X*ab.X + p.Sub(a).Y*ab.Y) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Dist(a.Add(ab.Scale(t)))
}
