package common

import "math"

// QuatIdentity is the identity rotation in (x, y, z, w) order.
var QuatIdentity = [4]float32{0, 0, 0, 1}

// QuatMul returns the Hamilton product a * b. Applying the result to a vector applies b first, then a.
//
// Parameters:
//   - a: left-hand quaternion (xyzw)
//   - b: right-hand quaternion (xyzw)
//
// Returns:
//   - [4]float32: the product quaternion
func QuatMul(a, b [4]float32) [4]float32 {
	ax, ay, az, aw := a[0], a[1], a[2], a[3]
	bx, by, bz, bw := b[0], b[1], b[2], b[3]
	return [4]float32{
		ax*bw + aw*bx + ay*bz - az*by,
		ay*bw + aw*by + az*bx - ax*bz,
		az*bw + aw*bz + ax*by - ay*bx,
		aw*bw - ax*bx - ay*by - az*bz,
	}
}

// QuatNormalize returns q scaled to unit length, or the identity when q has zero length.
func QuatNormalize(q [4]float32) [4]float32 {
	l := float32(math.Sqrt(float64(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])))
	if l == 0 {
		return QuatIdentity
	}
	inv := 1 / l
	return [4]float32{q[0] * inv, q[1] * inv, q[2] * inv, q[3] * inv}
}

// QuatInvert returns the inverse of a unit quaternion (its conjugate).
func QuatInvert(q [4]float32) [4]float32 {
	return [4]float32{-q[0], -q[1], -q[2], q[3]}
}

// QuatFromAxisAngle builds a rotation of angle radians about a unit axis.
//
// Parameters:
//   - axis: unit rotation axis
//   - angle: rotation in radians
//
// Returns:
//   - [4]float32: the rotation quaternion
func QuatFromAxisAngle(axis [3]float32, angle float32) [4]float32 {
	half := float64(angle) / 2
	s := float32(math.Sin(half))
	return [4]float32{axis[0] * s, axis[1] * s, axis[2] * s, float32(math.Cos(half))}
}

// QuatFromEuler converts intrinsic XYZ Euler angles (radians) into a quaternion.
//
// Parameters:
//   - e: rotation about X, Y and Z in radians
//
// Returns:
//   - [4]float32: the rotation quaternion
func QuatFromEuler(e [3]float32) [4]float32 {
	c1 := math.Cos(float64(e[0]) / 2)
	c2 := math.Cos(float64(e[1]) / 2)
	c3 := math.Cos(float64(e[2]) / 2)
	s1 := math.Sin(float64(e[0]) / 2)
	s2 := math.Sin(float64(e[1]) / 2)
	s3 := math.Sin(float64(e[2]) / 2)

	return [4]float32{
		float32(s1*c2*c3 + c1*s2*s3),
		float32(c1*s2*c3 - s1*c2*s3),
		float32(c1*c2*s3 + s1*s2*c3),
		float32(c1*c2*c3 - s1*s2*s3),
	}
}

// QuatToEuler converts a unit quaternion into intrinsic XYZ Euler angles (radians).
// Near gimbal lock (|Y| = π/2) the Z angle is folded into X.
//
// Parameters:
//   - q: unit quaternion (xyzw)
//
// Returns:
//   - [3]float32: rotation about X, Y and Z in radians
func QuatToEuler(q [4]float32) [3]float32 {
	x, y, z, w := float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])

	m11 := 1 - 2*(y*y+z*z)
	m12 := 2 * (x*y - w*z)
	m13 := 2 * (x*z + w*y)
	m22 := 1 - 2*(x*x+z*z)
	m23 := 2 * (y*z - w*x)
	m32 := 2 * (y*z + w*x)
	m33 := 1 - 2*(x*x+y*y)

	ey := math.Asin(math.Max(-1, math.Min(1, m13)))
	var ex, ez float64
	if math.Abs(m13) < 0.9999999 {
		ex = math.Atan2(-m23, m33)
		ez = math.Atan2(-m12, m11)
	} else {
		ex = math.Atan2(m32, m22)
		ez = 0
	}
	return [3]float32{float32(ex), float32(ey), float32(ez)}
}

// QuatFromMat4 extracts the rotation of a column-major matrix whose upper 3x3 is a pure rotation.
//
// Parameters:
//   - m: the matrix (16 elements)
//
// Returns:
//   - [4]float32: the unit rotation quaternion
func QuatFromMat4(m []float32) [4]float32 {
	m00, m01, m02 := m[0], m[4], m[8]
	m10, m11, m12 := m[1], m[5], m[9]
	m20, m21, m22 := m[2], m[6], m[10]

	trace := m00 + m11 + m22
	var q [4]float32
	switch {
	case trace > 0:
		s := float32(0.5 / math.Sqrt(float64(trace+1)))
		q = [4]float32{(m21 - m12) * s, (m02 - m20) * s, (m10 - m01) * s, 0.25 / s}
	case m00 > m11 && m00 > m22:
		s := float32(2 * math.Sqrt(float64(1+m00-m11-m22)))
		q = [4]float32{0.25 * s, (m01 + m10) / s, (m02 + m20) / s, (m21 - m12) / s}
	case m11 > m22:
		s := float32(2 * math.Sqrt(float64(1+m11-m00-m22)))
		q = [4]float32{(m01 + m10) / s, 0.25 * s, (m12 + m21) / s, (m02 - m20) / s}
	default:
		s := float32(2 * math.Sqrt(float64(1+m22-m00-m11)))
		q = [4]float32{(m02 + m20) / s, (m12 + m21) / s, 0.25 * s, (m10 - m01) / s}
	}
	return QuatNormalize(q)
}

// QuatWorldRotation extracts the rotation of a column-major affine matrix that may carry scale.
//
// Parameters:
//   - m: the matrix (16 elements)
//
// Returns:
//   - [4]float32: the unit rotation quaternion
func QuatWorldRotation(m []float32) [4]float32 {
	_, q, _ := DecomposeTRS(m)
	return q
}

// QuatRotateVec3 rotates v by the unit quaternion q.
func QuatRotateVec3(q [4]float32, v [3]float32) [3]float32 {
	qx, qy, qz, qw := q[0], q[1], q[2], q[3]
	tx := 2 * (qy*v[2] - qz*v[1])
	ty := 2 * (qz*v[0] - qx*v[2])
	tz := 2 * (qx*v[1] - qy*v[0])
	return [3]float32{
		v[0] + qw*tx + qy*tz - qz*ty,
		v[1] + qw*ty + qz*tx - qx*tz,
		v[2] + qw*tz + qx*ty - qy*tx,
	}
}

// QuatFromUnitVectors returns the shortest rotation taking unit vector from onto unit vector to.
func QuatFromUnitVectors(from, to [3]float32) [4]float32 {
	r := Vec3Dot(from, to) + 1
	var q [4]float32
	if r < 1e-6 {
		if float32(math.Abs(float64(from[0]))) > float32(math.Abs(float64(from[2]))) {
			q = [4]float32{-from[1], from[0], 0, 0}
		} else {
			q = [4]float32{0, -from[2], from[1], 0}
		}
	} else {
		c := Vec3Cross(from, to)
		q = [4]float32{c[0], c[1], c[2], r}
	}
	return QuatNormalize(q)
}

// QuatSlerp spherically interpolates between unit quaternions a and b along the shortest arc.
//
// Parameters:
//   - a: start rotation
//   - b: end rotation
//   - t: interpolation factor in [0, 1]
//
// Returns:
//   - [4]float32: the interpolated unit quaternion
func QuatSlerp(a, b [4]float32, t float32) [4]float32 {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}

	cosHalf := float64(a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3])
	if cosHalf < 0 {
		b = [4]float32{-b[0], -b[1], -b[2], -b[3]}
		cosHalf = -cosHalf
	}
	if cosHalf >= 1 {
		return a
	}

	sqrSinHalf := 1 - cosHalf*cosHalf
	if sqrSinHalf <= 1e-12 {
		s := 1 - t
		return QuatNormalize([4]float32{
			s*a[0] + t*b[0],
			s*a[1] + t*b[1],
			s*a[2] + t*b[2],
			s*a[3] + t*b[3],
		})
	}

	sinHalf := math.Sqrt(sqrSinHalf)
	half := math.Atan2(sinHalf, cosHalf)
	ra := float32(math.Sin((1-float64(t))*half) / sinHalf)
	rb := float32(math.Sin(float64(t)*half) / sinHalf)
	return [4]float32{
		a[0]*ra + b[0]*rb,
		a[1]*ra + b[1]*rb,
		a[2]*ra + b[2]*rb,
		a[3]*ra + b[3]*rb,
	}
}

// Vec3Add returns a + b.
func Vec3Add(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Vec3Sub returns a - b.
func Vec3Sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Vec3Scale returns v * s.
func Vec3Scale(v [3]float32, s float32) [3]float32 {
	return [3]float32{v[0] * s, v[1] * s, v[2] * s}
}

// Vec3Dot returns the dot product of a and b.
func Vec3Dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Vec3Cross returns the cross product a x b.
func Vec3Cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Vec3Length returns the Euclidean length of v.
func Vec3Length(v [3]float32) float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

// Vec3Normalize returns v scaled to unit length, or the zero vector when v has zero length.
func Vec3Normalize(v [3]float32) [3]float32 {
	l := Vec3Length(v)
	if l == 0 {
		return [3]float32{}
	}
	return Vec3Scale(v, 1/l)
}

// Vec3Lerp linearly interpolates between a and b.
func Vec3Lerp(a, b [3]float32, t float32) [3]float32 {
	return [3]float32{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
	}
}
