package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ajshooting/SpectralMorph-VST/internal/config"
	"github.com/ajshooting/SpectralMorph-VST/internal/processor"
	"github.com/ajshooting/SpectralMorph-VST/internal/wavio"
)

const maxUploadSize = 50 << 20 // 50 MB

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the formant shifter over HTTP (process, viz, metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	return cmd
}

// metrics instruments the harness's calls into the core. The core
// itself stays dependency-free on the audio path; these counters are
// a harness-side concern, bumped around each call to Process.
type metrics struct {
	hops         prometheus.Counter
	blockLatency prometheus.Histogram
	vizDrops     prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		hops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "formantd_hops_total",
			Help: "Number of STFT analysis/synthesis hops processed.",
		}),
		blockLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "formantd_block_process_seconds",
			Help:    "Wall-clock time spent inside Process per host block.",
			Buckets: prometheus.DefBuckets,
		}),
		vizDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "formantd_viz_publish_drops_total",
			Help: "Number of /viz WebSocket streams ended by a failed frame write.",
		}),
	}
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	m := newMetrics()

	mux := http.NewServeMux()
	mux.HandleFunc("/process", handleProcess(cfg, m))
	mux.HandleFunc("/viz", handleViz(cfg, m))

	handler := corsMiddleware(mux)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("formantd: metrics listening on %s", cfg.Server.MetricsAddr)
		log.Println(http.ListenAndServe(cfg.Server.MetricsAddr, metricsMux))
	}()

	log.Printf("formantd: serving on %s", cfg.Server.Addr)
	return http.ListenAndServe(cfg.Server.Addr, handler)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleProcess handles POST /process: a multipart "file" field
// containing a WAV upload, rendered through the core and returned as
// a WAV response. The processor instance backing this handler also
// backs /viz, so a concurrent viewer sees live snapshots while a
// render is in flight.
func handleProcess(cfg config.Config, m *metrics) http.HandlerFunc {
	proc := processor.New()
	proc.Prepare(cfg.Process.SampleRate, cfg.Process.MaxBlockSize, cfg.Process.ChannelCount)
	proc.SetTargetFormantsHz(cfg.TargetFormantsHz)

	sharedProcessor = proc

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			log.Printf("process: failed to parse form: %v", err)
			http.Error(w, "failed to parse upload", http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			log.Printf("process: no file in request: %v", err)
			http.Error(w, "no file uploaded", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			log.Printf("process: failed to read file: %v", err)
			http.Error(w, "failed to read file", http.StatusInternalServerError)
			return
		}

		samples, sampleRate, err := wavio.DecodeBytes(data)
		if err != nil {
			log.Printf("process: invalid WAV: %v", err)
			http.Error(w, "invalid WAV file: "+err.Error(), http.StatusBadRequest)
			return
		}

		blockLen := cfg.Process.MaxBlockSize
		if blockLen <= 0 {
			blockLen = 512
		}
		output := make([]float64, len(samples))
		inBlock := make([]float64, blockLen)
		outBlock := make([]float64, blockLen)
		inChannels := [][]float64{inBlock}
		outChannels := [][]float64{outBlock}

		for s := 0; s < len(samples); s += blockLen {
			n := blockLen
			if s+n > len(samples) {
				n = len(samples) - s
			}
			copy(inBlock[:n], samples[s:s+n])
			for i := n; i < blockLen; i++ {
				inBlock[i] = 0
			}
			start := time.Now()
			proc.Process(inChannels, outChannels, blockLen)
			m.blockLatency.Observe(time.Since(start).Seconds())
			copy(output[s:s+n], outBlock[:n])
			m.hops.Add(float64(blockLen / processor.HopSize))
		}

		result, err := wavio.EncodeBytes(output, sampleRate)
		if err != nil {
			http.Error(w, "failed to encode result", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "audio/wav")
		w.Header().Set("Content-Disposition", `attachment; filename="formant-shifted.wav"`)
		w.Write(result)
	}
}

// sharedProcessor is set by handleProcess and read by handleViz so the
// demo's single render-and-stream flow can share one processor. A real
// host would own this lifetime; the harness keeps it simple.
var sharedProcessor *processor.SpectralProcessor

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// vizFrame is the JSON shape streamed to the Visualization Sink.
type vizFrame struct {
	Magnitude []float64 `json:"magnitude"`
	Envelope  []float64 `json:"envelope"`
	F1Bin     float64   `json:"f1_bin"`
	F2Bin     float64   `json:"f2_bin"`
}

// handleViz handles GET /viz: it upgrades to a WebSocket and polls
// GetLatestVisualizationData at a UI-thread-like rate (~30 Hz),
// pushing JSON frames to the client until it disconnects.
func handleViz(cfg config.Config, m *metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("viz: upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(33 * time.Millisecond)
		defer ticker.Stop()

		for range ticker.C {
			if sharedProcessor == nil {
				continue
			}
			snap := sharedProcessor.GetLatestVisualizationData()
			frame := vizFrame{
				Magnitude: snap.Magnitude,
				Envelope:  snap.Envelope,
				F1Bin:     snap.F1Bin,
				F2Bin:     snap.F2Bin,
			}
			payload, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				m.vizDrops.Inc()
				return
			}
		}
	}
}
