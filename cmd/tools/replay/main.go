//go:build pcap
// +build pcap

// Package main replays a PCAP capture of vehicle-bus datagrams into a
// live detector over UDP, preserving the original inter-packet timing.
// Useful for reproducing a drive against new config or tuning values.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

var (
	pcapFile = flag.String("pcap", "", "PCAP file of recorded vehicle-bus datagrams")
	udpPort  = flag.Int("port", 9911, "UDP port the capture was recorded on")
	target   = flag.String("target", "127.0.0.1:9911", "UDP address to replay datagrams to")
	speed    = flag.Float64("speed", 1.0, "Replay speed multiplier (1.0 = real-time)")
)

func main() {
	flag.Parse()

	if *pcapFile == "" {
		fmt.Fprintln(os.Stderr, "usage: replay -pcap <file> [-port N] [-target host:port] [-speed X]")
		os.Exit(2)
	}
	if *speed <= 0 {
		log.Fatalf("speed must be positive, got %v", *speed)
	}

	handle, err := pcap.OpenOffline(*pcapFile)
	if err != nil {
		log.Fatalf("failed to open PCAP file %s: %v", *pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", *udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		log.Fatalf("failed to set BPF filter %q: %v", filterStr, err)
	}

	targetAddr, err := net.ResolveUDPAddr("udp", *target)
	if err != nil {
		log.Fatalf("failed to resolve target address: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, targetAddr)
	if err != nil {
		log.Fatalf("failed to dial target: %v", err)
	}
	defer conn.Close()

	log.Printf("replaying %s to %s (filter %q, speed %.1fx)", *pcapFile, *target, filterStr, *speed)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())

	var sent, dropped int
	var lastCapture time.Time
	start := time.Now()

	for packet := range packetSource.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		payload := udpLayer.(*layers.UDP).Payload
		if len(payload) == 0 {
			continue
		}

		captureTime := packet.Metadata().Timestamp
		if !lastCapture.IsZero() {
			gap := captureTime.Sub(lastCapture)
			if gap > 0 {
				time.Sleep(time.Duration(float64(gap) / *speed))
			}
		}
		lastCapture = captureTime

		if _, err := conn.Write(payload); err != nil {
			dropped++
			continue
		}
		sent++
	}

	log.Printf("replay complete: %d datagrams sent, %d dropped in %v", sent, dropped, time.Since(start).Round(time.Millisecond))
}
