package geom

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Tolerance absorbs float error on coplanar and grazing rays. Renderers that
// must agree with the reference shader depend on this exact value.
const Tolerance = 1e-3

// minf and maxf follow shader semantics: comparisons against NaN fall
// through to the first operand instead of propagating through math.Min.
func minf(a, b float64) float64 {
	if b < a {
		return b
	}
	return a
}

func maxf(a, b float64) float64 {
	if b > a {
		return b
	}
	return a
}

// IntersectAABB runs the slab test of the ray origin+t*dir against the box
// spanned by boxMin and boxMax. The corners may be given in any order. A zero
// direction component divides to ±Inf and is resolved by ordinary float
// comparisons; the ray misses the box when tNear > tFar.
func IntersectAABB(origin, dir, boxMin, boxMax v3.Vec) (tNear, tFar float64) {
	b, _ := Box{Min: boxMin, Max: boxMax}.Normalized()

	tMinX := (b.Min.X - origin.X) / dir.X
	tMaxX := (b.Max.X - origin.X) / dir.X
	tMinY := (b.Min.Y - origin.Y) / dir.Y
	tMaxY := (b.Max.Y - origin.Y) / dir.Y
	tMinZ := (b.Min.Z - origin.Z) / dir.Z
	tMaxZ := (b.Max.Z - origin.Z) / dir.Z

	t1x, t2x := minf(tMinX, tMaxX), maxf(tMinX, tMaxX)
	t1y, t2y := minf(tMinY, tMaxY), maxf(tMinY, tMaxY)
	t1z, t2z := minf(tMinZ, tMaxZ), maxf(tMinZ, tMaxZ)

	tNear = maxf(maxf(t1x, t1y), t1z)
	tFar = minf(minf(t2x, t2y), t2z)
	return tNear, tFar
}

// IntersectPlane returns the point where the ray through origin along dir
// meets the plane through p0 with normal n. ok is false when the ray is
// parallel to the plane.
func IntersectPlane(origin, dir, p0, n v3.Vec) (x v3.Vec, ok bool) {
	denom := dir.Dot(n)
	if denom == 0 {
		return v3.Vec{}, false
	}
	t := p0.Sub(origin).Dot(n) / denom
	return origin.Add(dir.MulScalar(t)), true
}

// sameSide reports whether p and ref lie on the same side of the edge a-b,
// within Tolerance.
func sameSide(p, ref, a, b v3.Vec) bool {
	edge := b.Sub(a)
	cp1 := edge.Cross(p.Sub(a))
	cp2 := edge.Cross(ref.Sub(a))
	return cp1.Dot(cp2) >= -Tolerance
}

// InTriangle reports whether the coplanar point p lies inside the triangle
// p0,p1,p2. The test is winding independent.
func InTriangle(p, p0, p1, p2 v3.Vec) bool {
	return sameSide(p, p2, p0, p1) &&
		sameSide(p, p0, p1, p2) &&
		sameSide(p, p1, p2, p0)
}

// IntersectTriangle reports whether the ray from origin along the unit
// direction dir crosses the triangle p0,p1,p2 no further than maxDistance.
//
// The forward test compares normalize(origin-x) with dir and rejects hits
// whose cosine reaches 1-Tolerance. Hits that land exactly on the origin have
// no direction and are rejected too.
func IntersectTriangle(origin, dir, p0, p1, p2 v3.Vec, maxDistance float64) bool {
	n := p1.Sub(p0).Cross(p2.Sub(p0))
	x, ok := IntersectPlane(origin, dir, p0, n)
	if !ok {
		return false
	}
	if !InTriangle(x, p0, p1, p2) {
		return false
	}
	back := origin.Sub(x)
	dist := back.Length()
	if dist == 0 {
		return false
	}
	if back.MulScalar(1/dist).Dot(dir) >= 1-Tolerance {
		return false
	}
	return dist <= maxDistance-Tolerance
}

// IntersectSlab reports whether the ray crosses either triangle of the slab
// within maxDistance.
func IntersectSlab(origin, dir v3.Vec, s Slab, maxDistance float64) bool {
	for _, tri := range s.Triangles() {
		if IntersectTriangle(origin, dir, tri[0], tri[1], tri[2], maxDistance) {
			return true
		}
	}
	return false
}
