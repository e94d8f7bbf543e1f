package geom

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransformUnavailable is returned when the rigid camera-to-world
// transform cannot be obtained within the lookup timeout. Callers skip
// image-plane projection for that frame and classify the full image.
var ErrTransformUnavailable = errors.New("camera to world transform unavailable")

// ErrBehindImagePlane is returned when the projected point sits at or
// behind the camera image plane and has no pixel location.
var ErrBehindImagePlane = errors.New("point at or behind image plane")

// Frame names used for transform lookups.
const (
	FrameBaseLink = "base_link"
	FrameWorld    = "world"
)

// Intrinsics holds the pinhole camera parameters for the vehicle camera.
// Focal lengths are expressed in pixel units; the principal point is the
// image centre.
type Intrinsics struct {
	FocalLengthX float64
	FocalLengthY float64
	ImageWidth   int
	ImageHeight  int
}

// PrincipalPoint returns the principal point (cx, cy) at the image centre.
func (in Intrinsics) PrincipalPoint() (cx, cy float64) {
	return float64(in.ImageWidth / 2), float64(in.ImageHeight / 2)
}

// Validate checks the intrinsics describe a usable camera.
func (in Intrinsics) Validate() error {
	if in.FocalLengthX <= 0 || in.FocalLengthY <= 0 {
		return fmt.Errorf("focal lengths must be positive, got (%v, %v)", in.FocalLengthX, in.FocalLengthY)
	}
	if in.ImageWidth <= 0 || in.ImageHeight <= 0 {
		return fmt.Errorf("image dimensions must be positive, got (%d, %d)", in.ImageWidth, in.ImageHeight)
	}
	return nil
}

// Transform is a rigid transform between two named frames, expressed as
// a translation vector and a rotation quaternion (x, y, z, w).
type Transform struct {
	Translation [3]float64
	Rotation    [4]float64
}

// TransformSource supplies the current rigid transform between two
// frames. Lookup blocks until the transform is available or the context
// deadline expires; on timeout or lookup failure it returns an error
// wrapping ErrTransformUnavailable.
type TransformSource interface {
	Lookup(ctx context.Context, targetFrame, sourceFrame string) (Transform, error)
}

// ProjectToImagePlane projects a 3D world point into camera pixel
// coordinates. The point is first expressed in the vehicle's yaw-aligned
// frame (RotateClockwise about the vehicle position), offset by the
// supplied camera transform translation, then mapped through the pinhole
// model:
//
//	u = fx·x'/z' + cx
//	v = fy·y'/z' + cy
//
// The transform's rotation component is not applied: the camera is
// calibrated so heading alignment alone places the point in the camera
// frame, matching the simulator calibration.
func ProjectToImagePlane(worldX, worldY, worldZ, carX, carY, yawDeg float64, in Intrinsics, tf Transform) (u, v float64, err error) {
	rx, ry := RotateClockwise(worldX, worldY, carX, carY, yawDeg)

	px := rx + tf.Translation[0]
	py := ry + tf.Translation[1]
	pz := worldZ + tf.Translation[2]

	if pz <= 0 {
		return 0, 0, ErrBehindImagePlane
	}

	cx, cy := in.PrincipalPoint()
	u = in.FocalLengthX*px/pz + cx
	v = in.FocalLengthY*py/pz + cy
	return u, v, nil
}
