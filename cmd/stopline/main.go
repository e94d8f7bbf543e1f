// Command stopline runs the traffic-light stop detector: it ingests
// vehicle pose, route waypoints, traffic-light snapshots and camera
// frames from the vehicle bus over UDP, and publishes the waypoint
// index to brake for (or -1) once per frame.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/stopline.report/internal/api"
	"github.com/banshee-data/stopline.report/internal/config"
	"github.com/banshee-data/stopline.report/internal/detect"
	"github.com/banshee-data/stopline.report/internal/geom"
	"github.com/banshee-data/stopline.report/internal/ingest"
	"github.com/banshee-data/stopline.report/internal/store"
)

var (
	configPath  = flag.String("config", "config/site.json", "Site config file (stop lines, camera intrinsics)")
	ingestAddr  = flag.String("ingest", ":9911", "UDP address for vehicle-bus datagrams")
	publishAddr = flag.String("publish", "", "UDP address to publish decisions to (empty disables)")
	listen      = flag.String("listen", ":8080", "HTTP listen address for the debug API")
	dbPath      = flag.String("db", "stopline_data.db", "SQLite database path")
	udpRcvBuf   = flag.Int("udp-rcvbuf", 4*1024*1024, "UDP receive buffer size in bytes")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// A config missing stop lines or camera intrinsics is fatal: the
	// detector cannot associate lights or project them without it.
	cfg, err := config.LoadSiteConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load site config: %v", err)
	}
	log.Printf("loaded site config: %d stop lines, camera %dx%d",
		len(cfg.StopLinePositions), cfg.Intrinsics().ImageWidth, cfg.Intrinsics().ImageHeight)

	db, err := store.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	sessionID, err := db.NewSession(*configPath)
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	log.Printf("detector session %s", sessionID)

	detector := detect.NewDetector(detect.DetectorConfig{
		StopLines:           cfg.StopLines(),
		Intrinsics:          cfg.Intrinsics(),
		MaxStopDistance:     cfg.GetMaxStopDistance(),
		StateCountThreshold: cfg.GetStateCountThreshold(),
		TransformTimeout:    cfg.GetTransformTimeout(),
		Transforms:          geom.StaticTransformSource{T: geom.Transform{Translation: cfg.GetCameraMountTranslation()}},
		OnCandidate: func(unixNanos int64, c detect.Candidate) {
			if err := db.RecordObservation(sessionID, unixNanos, c); err != nil {
				log.Printf("failed to record observation: %v", err)
			}
		},
	})

	detector.AddPublisher(detect.PublisherFunc(func(d detect.Decision) error {
		return db.RecordDecision(sessionID, d)
	}))

	if *publishAddr != "" {
		pub, err := detect.NewUDPPublisher(*publishAddr)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
		defer pub.Close()
		detector.AddPublisher(pub)
		log.Printf("publishing decisions to %s", pub.Address())
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ingest loop: pose/waypoints/lights/frames from the vehicle bus
	wg.Add(1)
	go func() {
		defer wg.Done()
		listener := ingest.NewListener(ingest.ListenerConfig{
			Address: *ingestAddr,
			RcvBuf:  *udpRcvBuf,
		}, detector)
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("ingest listener stopped: %v", err)
		}
		log.Print("ingest routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(detector, db, sessionID).ServeMux()

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		log.Printf("debug API listening on %s", *listen)

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
