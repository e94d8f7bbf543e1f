// Package ingest receives the vehicle-bus datagram stream: pose,
// waypoint-list, traffic-light-list and camera-frame messages, each a
// single JSON UDP datagram with a type discriminator. Pose, waypoint
// and light messages update detector snapshots (latest wins); each
// camera frame triggers one evaluation cycle.
package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/banshee-data/stopline.report/internal/detect"
	"github.com/banshee-data/stopline.report/internal/route"
)

// Message type discriminators.
const (
	TypePose          = "pose"
	TypeWaypoints     = "waypoints"
	TypeTrafficLights = "traffic_lights"
	TypeCameraFrame   = "camera_frame"
)

// Envelope is the wire form of every ingest datagram. Only the fields
// matching the Type are populated.
type Envelope struct {
	Type string `json:"type"`

	// pose
	Position    *Vector3    `json:"position,omitempty"`
	Orientation *Quaternion `json:"orientation,omitempty"`

	// waypoints
	Waypoints []route.Point `json:"waypoints,omitempty"`

	// traffic_lights
	Lights []detect.TrafficLight `json:"lights,omitempty"`

	// camera_frame
	UnixNanos int64  `json:"unix_nanos,omitempty"`
	ImageB64  string `json:"image_b64,omitempty"`
}

// Vector3 is a 3D position on the wire.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is an orientation on the wire.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Sink consumes decoded ingest messages. *detect.Detector satisfies it.
type Sink interface {
	UpdatePose(detect.Pose)
	UpdateWaypoints([]route.Point)
	UpdateLights([]detect.TrafficLight)
	OnFrame(detect.Frame) detect.Decision
}

// Stats tracks datagram counts for periodic logging.
type Stats struct {
	Datagrams atomic.Int64
	Frames    atomic.Int64
	Errors    atomic.Int64
}

// Listener receives ingest datagrams over UDP and dispatches them to a
// Sink.
type Listener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	buffer      []byte
	sink        Sink
	stats       Stats
}

// ListenerConfig contains configuration options for the ingest listener.
type ListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
}

// MaxDatagramSize bounds a single ingest datagram. Camera frames carry
// base64 image payloads and need more room than a typical telemetry
// packet.
const MaxDatagramSize = 65507

// NewListener creates an ingest listener feeding the given sink.
func NewListener(cfg ListenerConfig, sink Sink) *Listener {
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = 30 * time.Second
	}
	return &Listener{
		address:     cfg.Address,
		rcvBuf:      cfg.RcvBuf,
		logInterval: cfg.LogInterval,
		buffer:      make([]byte, MaxDatagramSize),
		sink:        sink,
	}
}

// Start begins listening for ingest datagrams. Returns when the context
// is cancelled or an unrecoverable error occurs.
func (l *Listener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %v", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %v", err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			log.Printf("Warning: failed to set UDP receive buffer to %d bytes: %v", l.rcvBuf, err)
		}
	}

	log.Printf("Listening for vehicle-bus datagrams on %s", l.address)

	go l.startStatsLogging(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("ingest listener shutting down")
			return ctx.Err()
		default:
			if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
				log.Printf("Error setting read deadline: %v", err)
				continue
			}

			n, _, err := conn.ReadFromUDP(l.buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				log.Printf("Error reading ingest datagram: %v", err)
				continue
			}

			if err := l.HandleDatagram(l.buffer[:n]); err != nil {
				l.stats.Errors.Add(1)
				log.Printf("Error handling ingest datagram: %v", err)
			}
		}
	}
}

// HandleDatagram decodes one datagram and dispatches it to the sink.
func (l *Listener) HandleDatagram(payload []byte) error {
	l.stats.Datagrams.Add(1)

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("failed to unmarshal datagram: %v", err)
	}

	switch env.Type {
	case TypePose:
		if env.Position == nil || env.Orientation == nil {
			return fmt.Errorf("pose datagram missing position or orientation")
		}
		l.sink.UpdatePose(detect.NewPose(
			env.Position.X, env.Position.Y, env.Position.Z,
			env.Orientation.X, env.Orientation.Y, env.Orientation.Z, env.Orientation.W,
		))
	case TypeWaypoints:
		l.sink.UpdateWaypoints(env.Waypoints)
	case TypeTrafficLights:
		l.sink.UpdateLights(env.Lights)
	case TypeCameraFrame:
		var image []byte
		if env.ImageB64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(env.ImageB64)
			if err != nil {
				return fmt.Errorf("failed to decode frame image: %v", err)
			}
			image = decoded
		}
		ts := env.UnixNanos
		if ts == 0 {
			ts = time.Now().UnixNano()
		}
		l.stats.Frames.Add(1)
		l.sink.OnFrame(detect.Frame{Image: image, UnixNanos: ts})
	default:
		return fmt.Errorf("unknown datagram type %q", env.Type)
	}
	return nil
}

// startStatsLogging logs datagram statistics at regular intervals.
func (l *Listener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("ingest: %d datagrams, %d frames, %d errors",
				l.stats.Datagrams.Load(), l.stats.Frames.Load(), l.stats.Errors.Load())
		}
	}
}
