package detect

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/stopline.report/internal/geom"
	"github.com/banshee-data/stopline.report/internal/route"
)

// DefaultTransformTimeout bounds how long a frame evaluation may block
// waiting for the camera transform before degrading to an uncropped
// classification.
const DefaultTransformTimeout = 1 * time.Second

// DetectorConfig configures a Detector.
type DetectorConfig struct {
	StopLines           []route.Point
	Intrinsics          geom.Intrinsics
	MaxStopDistance     int           // waypoint-index distance bound; 0 means DefaultMaxStopDistance
	StateCountThreshold int           // debounce threshold; 0 means DefaultStateCountThreshold
	TransformTimeout    time.Duration // 0 means DefaultTransformTimeout

	// Transforms supplies the camera-to-world transform used for the
	// image-plane crop hint. Optional; without it frames classify
	// uncropped.
	Transforms geom.TransformSource

	// Classifier maps camera images to light states. Optional; when
	// nil the detector runs in ground-truth mode and trusts the state
	// carried on the light list snapshot.
	Classifier Classifier

	// OnCandidate, if set, receives the raw per-frame candidate before
	// debouncing. Used to persist observations for offline analysis.
	OnCandidate func(unixNanos int64, c Candidate)
}

// Detector is the frame-triggered evaluation pipeline. Pose, waypoint
// and light updates may arrive asynchronously and are swapped in as
// immutable snapshots; each camera frame runs one evaluation to
// completion and publishes exactly one decision.
type Detector struct {
	stopLines        []route.Point
	intrinsics       geom.Intrinsics
	maxStopDistance  int
	transformTimeout time.Duration
	transforms       geom.TransformSource
	classifier       Classifier
	onCandidate      func(unixNanos int64, c Candidate)

	pose   atomic.Pointer[Pose]
	index  atomic.Pointer[route.Index]
	lights atomic.Pointer[[]TrafficLight]

	// frameMu serialises evaluations: the debounce state must never be
	// mutated by two frames at once.
	frameMu         sync.Mutex
	debouncer       *Debouncer
	seq             int64
	framesEvaluated atomic.Int64
	lastFrameNanos  atomic.Int64
	lastDecision    atomic.Pointer[Decision]

	publishers []Publisher
}

// NewDetector creates a Detector from the given configuration.
func NewDetector(cfg DetectorConfig, publishers ...Publisher) *Detector {
	maxDist := cfg.MaxStopDistance
	if maxDist <= 0 {
		maxDist = DefaultMaxStopDistance
	}
	threshold := cfg.StateCountThreshold
	if threshold <= 0 {
		threshold = DefaultStateCountThreshold
	}
	timeout := cfg.TransformTimeout
	if timeout <= 0 {
		timeout = DefaultTransformTimeout
	}
	return &Detector{
		stopLines:        append([]route.Point(nil), cfg.StopLines...),
		intrinsics:       cfg.Intrinsics,
		maxStopDistance:  maxDist,
		transformTimeout: timeout,
		transforms:       cfg.Transforms,
		classifier:       cfg.Classifier,
		onCandidate:      cfg.OnCandidate,
		debouncer:        NewDebouncer(threshold),
		publishers:       publishers,
	}
}

// UpdatePose replaces the vehicle pose snapshot. Latest wins.
func (d *Detector) UpdatePose(p Pose) {
	d.pose.Store(&p)
}

// UpdateWaypoints replaces the route waypoint list and rebuilds the
// nearest-neighbour index before the new list becomes visible to
// queries.
func (d *Detector) UpdateWaypoints(points []route.Point) {
	d.index.Store(route.NewIndex(points))
}

// UpdateLights replaces the traffic-light list snapshot. Latest wins.
func (d *Detector) UpdateLights(lights []TrafficLight) {
	snapshot := append([]TrafficLight(nil), lights...)
	d.lights.Store(&snapshot)
}

// OnFrame runs one evaluation cycle for an incoming camera frame and
// returns the published decision. Unknown vehicle position or an empty
// waypoint list produce a "no candidate" observation, which the
// debouncer confirms into a published no-stop.
func (d *Detector) OnFrame(frame Frame) Decision {
	d.frameMu.Lock()
	defer d.frameMu.Unlock()

	cand := d.evaluate(frame)
	if d.onCandidate != nil {
		d.onCandidate(frame.UnixNanos, cand)
	}

	published := d.debouncer.Observe(cand.StopWaypoint, cand.State)

	d.seq++
	decision := Decision{
		Seq:          d.seq,
		StopWaypoint: published,
		State:        cand.State,
		UnixNanos:    frame.UnixNanos,
	}
	d.framesEvaluated.Add(1)
	d.lastFrameNanos.Store(frame.UnixNanos)
	d.lastDecision.Store(&decision)

	for _, p := range d.publishers {
		if err := p.Publish(decision); err != nil {
			log.Printf("publish decision seq=%d: %v", decision.Seq, err)
		}
	}
	return decision
}

// AddPublisher registers an additional decision sink. Not safe to call
// concurrently with OnFrame; wire publishers before starting ingest.
func (d *Detector) AddPublisher(p Publisher) {
	d.publishers = append(d.publishers, p)
}

// evaluate produces the raw candidate for one frame.
func (d *Detector) evaluate(frame Frame) Candidate {
	pose := d.pose.Load()
	ix := d.index.Load()
	if pose == nil || ix.Len() == 0 {
		return NoCandidate
	}

	var lights []TrafficLight
	if s := d.lights.Load(); s != nil {
		lights = *s
	}

	vehicleWP := ix.Nearest(pose.X, pose.Y)
	cand := SelectUpcoming(ix, d.stopLines, lights, vehicleWP, d.maxStopDistance)
	if cand.StopWaypoint < 0 {
		return cand
	}

	// With a real classifier the snapshot state is replaced by the
	// model's output on the cropped (or, if the transform lookup
	// failed, full) camera image.
	if d.classifier != nil && len(frame.Image) > 0 {
		if _, _, err := d.cropHint(*pose, cand); err != nil {
			log.Printf("image-plane crop skipped: %v", err)
		}
		state := d.classifier.Classify(frame.Image)
		if state == LightYellow {
			state = LightRed
		}
		cand.State = state
	}
	return cand
}

// cropHint projects the selected light into camera pixel coordinates to
// bound the classifier crop. Fails fast with ErrTransformUnavailable
// when the transform lookup cannot complete within the timeout.
func (d *Detector) cropHint(pose Pose, cand Candidate) (u, v float64, err error) {
	if d.transforms == nil {
		return 0, 0, geom.ErrTransformUnavailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.transformTimeout)
	defer cancel()

	tf, err := d.transforms.Lookup(ctx, geom.FrameBaseLink, geom.FrameWorld)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = geom.ErrTransformUnavailable
		}
		return 0, 0, err
	}
	return geom.ProjectToImagePlane(
		cand.LightX, cand.LightY, cand.LightZ,
		pose.X, pose.Y, pose.Yaw,
		d.intrinsics, tf,
	)
}

// Status is a point-in-time view of the detector for the debug API.
type Status struct {
	WaypointCount    int        `json:"waypoint_count"`
	HavePose         bool       `json:"have_pose"`
	VehicleWaypoint  int        `json:"vehicle_waypoint"`
	LightCount       int        `json:"light_count"`
	StableState      LightState `json:"stable_state"`
	ConsecutiveCount int        `json:"consecutive_count"`
	LastPublished    int        `json:"last_published"`
	FramesEvaluated  int64      `json:"frames_evaluated"`
	LastFrameNanos   int64      `json:"last_frame_unix_nanos"`
}

// Status reports the current detector state. The debounce fields are
// read under the frame lock so they are mutually consistent.
func (d *Detector) Status() Status {
	d.frameMu.Lock()
	st := Status{
		StableState:      d.debouncer.State(),
		ConsecutiveCount: d.debouncer.ConsecutiveCount(),
		LastPublished:    d.debouncer.LastPublished(),
	}
	d.frameMu.Unlock()

	ix := d.index.Load()
	st.WaypointCount = ix.Len()
	st.VehicleWaypoint = -1
	if pose := d.pose.Load(); pose != nil {
		st.HavePose = true
		st.VehicleWaypoint = ix.Nearest(pose.X, pose.Y)
	}
	if lights := d.lights.Load(); lights != nil {
		st.LightCount = len(*lights)
	}
	st.FramesEvaluated = d.framesEvaluated.Load()
	st.LastFrameNanos = d.lastFrameNanos.Load()
	return st
}

// LastDecision returns the most recently published decision, or nil
// before the first frame.
func (d *Detector) LastDecision() *Decision {
	return d.lastDecision.Load()
}
