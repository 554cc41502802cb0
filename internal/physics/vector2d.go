package physics

import "math"

// Vec2 is a 2D vector with fixed-precision arithmetic, generalized from
// internal/game/vector2d.go. Rounding keeps replayed traces comparable
// across runs (property 1 in SPEC_FULL §8: determinism).
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func fix(n float64) float64 {
	if math.IsNaN(n) {
		return 0
	}
	return math.Round(n*10000) / 10000
}

func NewVec2(x, y float64) Vec2 {
	return Vec2{X: fix(x), Y: fix(y)}
}

func (v Vec2) Plus(o Vec2) Vec2  { return Vec2{X: fix(v.X + o.X), Y: fix(v.Y + o.Y)} }
func (v Vec2) Minus(o Vec2) Vec2 { return Vec2{X: fix(v.X - o.X), Y: fix(v.Y - o.Y)} }
func (v Vec2) Times(s float64) Vec2 {
	return Vec2{X: fix(v.X * s), Y: fix(v.Y * s)}
}

func (v Vec2) Magnitude() float64 {
	return fix(math.Sqrt(v.X*v.X + v.Y*v.Y))
}

func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }
