package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danmuck/linkctl/internal/protocol"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkctl",
			Subsystem: "wire",
			Name:      "frames_sent_total",
			Help:      "Frames handed to the transmit path.",
		},
	)
	framesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkctl",
			Subsystem: "wire",
			Name:      "frames_received_total",
			Help:      "Frames decoded successfully.",
		},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkctl",
			Subsystem: "wire",
			Name:      "decode_errors_total",
			Help:      "Frame and packet decode failures by error class.",
		},
		[]string{"class"},
	)
	chunksSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkctl",
			Subsystem: "link",
			Name:      "chunks_sent_total",
			Help:      "Payload chunks written during reliable sends.",
		},
	)
	chunksAcked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linkctl",
			Subsystem: "link",
			Name:      "chunks_acked_total",
			Help:      "Payload chunks acknowledged by the peer.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesSent, framesReceived, decodeErrors, chunksSent, chunksAcked)
	})
}

func RecordFrameSent() {
	RegisterMetrics()
	framesSent.Inc()
}

func RecordFrameReceived() {
	RegisterMetrics()
	framesReceived.Inc()
}

func RecordDecodeError(class protocol.Class) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(class.String()).Inc()
}

func RecordChunkSent() {
	RegisterMetrics()
	chunksSent.Inc()
}

func RecordChunkAcked() {
	RegisterMetrics()
	chunksAcked.Inc()
}
