package geom

import "math"

// QuaternionToEuler converts a unit quaternion (x, y, z, w) into Euler
// angles (roll, pitch, yaw) in degrees using the standard closed-form
// conversion. The intermediate asin argument is clamped to [-1, 1] so
// floating-point overshoot near ±90° pitch degrades to the boundary
// angle instead of producing NaN.
func QuaternionToEuler(x, y, z, w float64) (roll, pitch, yaw float64) {
	ysqr := y * y

	t0 := 2.0 * (w*x + y*z)
	t1 := 1.0 - 2.0*(x*x+ysqr)
	roll = degrees(math.Atan2(t0, t1))

	t2 := 2.0 * (w*y - z*x)
	if t2 > 1 {
		t2 = 1
	}
	if t2 < -1 {
		t2 = -1
	}
	pitch = degrees(math.Asin(t2))

	t3 := 2.0 * (w*z + x*y)
	t4 := 1.0 - 2.0*(ysqr+z*z)
	yaw = degrees(math.Atan2(t3, t4))

	return roll, pitch, yaw
}

// RotateClockwise expresses the target point in a frame centred on the
// origin point and rotated clockwise by yawDeg degrees. Used to express
// a world point relative to the vehicle's heading before projection.
//
//	x' = y·sin(a) + x·cos(a)
//	y' = y·cos(a) - x·sin(a)
func RotateClockwise(targetX, targetY, originX, originY, yawDeg float64) (x, y float64) {
	yawRad := radians(yawDeg)

	centredX := targetX - originX
	centredY := targetY - originY

	sin := math.Sin(yawRad)
	cos := math.Cos(yawRad)

	x = centredY*sin + centredX*cos
	y = centredY*cos - centredX*sin
	return x, y
}

// Distance2D returns the Euclidean distance between two points on the
// ground plane.
func Distance2D(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return math.Sqrt(dx*dx + dy*dy)
}

func degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
