package detect

import (
	"encoding/json"
	"fmt"
	"net"
)

// Publisher receives every published decision, once per evaluated
// frame.
type Publisher interface {
	Publish(Decision) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(Decision) error

// Publish calls f.
func (f PublisherFunc) Publish(d Decision) error { return f(d) }

// UDPPublisher emits each decision as a JSON datagram to a fixed
// address. It is the stand-in for the upstream stop-waypoint topic: the
// planner on the other end reads the stop_waypoint field.
type UDPPublisher struct {
	conn    *net.UDPConn
	address string
}

// NewUDPPublisher dials the destination address (host:port).
func NewUDPPublisher(address string) (*UDPPublisher, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve publish address: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create publish connection: %v", err)
	}
	return &UDPPublisher{conn: conn, address: address}, nil
}

// Publish sends one decision datagram. Send errors are returned to the
// caller for logging; a lost datagram is not retried.
func (p *UDPPublisher) Publish(d Decision) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %v", err)
	}
	if _, err := p.conn.Write(payload); err != nil {
		return fmt.Errorf("failed to send decision: %v", err)
	}
	return nil
}

// Address returns the destination address.
func (p *UDPPublisher) Address() string { return p.address }

// Close closes the underlying connection.
func (p *UDPPublisher) Close() error { return p.conn.Close() }
