package common

import "math"

// Box3 is an axis-aligned bounding box. A zero-value Box3 is not empty; use EmptyBox3.
type Box3 struct {
	Min [3]float32
	Max [3]float32
}

// EmptyBox3 returns a box that contains nothing, ready to be expanded.
func EmptyBox3() Box3 {
	inf := float32(math.Inf(1))
	return Box3{
		Min: [3]float32{inf, inf, inf},
		Max: [3]float32{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the box contains no points.
func (b Box3) IsEmpty() bool {
	return b.Max[0] < b.Min[0] || b.Max[1] < b.Min[1] || b.Max[2] < b.Min[2]
}

// ExpandByPoint grows the box to include p.
func (b *Box3) ExpandByPoint(p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Union grows the box to include o.
func (b *Box3) Union(o Box3) {
	if o.IsEmpty() {
		return
	}
	b.ExpandByPoint(o.Min)
	b.ExpandByPoint(o.Max)
}

// Center returns the midpoint of the box, or the origin when the box is empty.
func (b Box3) Center() [3]float32 {
	if b.IsEmpty() {
		return [3]float32{}
	}
	return [3]float32{
		(b.Min[0] + b.Max[0]) * 0.5,
		(b.Min[1] + b.Max[1]) * 0.5,
		(b.Min[2] + b.Max[2]) * 0.5,
	}
}

// Size returns the extent of the box along each axis, or zero when the box is empty.
func (b Box3) Size() [3]float32 {
	if b.IsEmpty() {
		return [3]float32{}
	}
	return Vec3Sub(b.Max, b.Min)
}
