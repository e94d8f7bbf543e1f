package detect

import (
	"github.com/banshee-data/stopline.report/internal/geom"
	"github.com/banshee-data/stopline.report/internal/route"
)

// LightState is the discrete classification of a traffic light.
type LightState string

const (
	LightRed     LightState = "red"
	LightYellow  LightState = "yellow"
	LightGreen   LightState = "green"
	LightUnknown LightState = "unknown"
)

// NoStopWaypoint is published when no stop is required.
const NoStopWaypoint = -1

// Pose is the latest known vehicle state. Yaw, pitch and roll are
// derived from the orientation quaternion at construction time and
// expressed in degrees.
type Pose struct {
	X, Y, Z float64

	// Orientation quaternion as received.
	QX, QY, QZ, QW float64

	Roll, Pitch, Yaw float64
}

// NewPose builds a Pose from a position and orientation quaternion,
// deriving the Euler angles.
func NewPose(x, y, z, qx, qy, qz, qw float64) Pose {
	roll, pitch, yaw := geom.QuaternionToEuler(qx, qy, qz, qw)
	return Pose{
		X: x, Y: y, Z: z,
		QX: qx, QY: qy, QZ: qz, QW: qw,
		Roll: roll, Pitch: pitch, Yaw: yaw,
	}
}

// TrafficLight is one known light with its 3D map position and most
// recent classification state. Lights arrive as full list snapshots
// that replace the prior list.
type TrafficLight struct {
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	Z     float64    `json:"z"`
	State LightState `json:"state"`
}

// Frame is one camera frame delivery. The image payload may be empty in
// ground-truth mode where the simulator state substitutes for
// classification.
type Frame struct {
	Image     []byte
	UnixNanos int64
}

// Candidate is the upcoming-light selection result for one frame. The
// winner's map position is carried along for the image-plane crop
// projection.
type Candidate struct {
	LightWaypoint int
	StopWaypoint  int
	State         LightState

	LightX, LightY, LightZ float64
}

// NoCandidate reports that no light qualifies ahead of the vehicle.
var NoCandidate = Candidate{LightWaypoint: -1, StopWaypoint: -1, State: LightUnknown}

// Classifier maps a camera image to a light state. Implementations are
// external to this module; the detector treats the call as opaque.
type Classifier interface {
	Classify(image []byte) LightState
}

// Decision is one published output: the stop waypoint to brake for (or
// NoStopWaypoint) together with the stable state that produced it.
type Decision struct {
	Seq          int64      `json:"seq"`
	StopWaypoint int        `json:"stop_waypoint"`
	State        LightState `json:"state"`
	UnixNanos    int64      `json:"unix_nanos"`
}

// routePoint is a convenience alias used throughout the package.
type routePoint = route.Point
