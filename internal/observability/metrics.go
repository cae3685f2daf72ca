package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danmuck/edgelink/internal/link"
)

const namespace = "edgelink"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	pollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "poll_duration_seconds",
			Help:      "Time spent in one link poll.",
			Buckets:   []float64{.00001, .0001, .001, .01, .1},
		},
		[]string{"link"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, pollDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordPoll(linkName string, duration time.Duration) {
	RegisterMetrics()
	pollDuration.WithLabelValues(linkName).Observe(duration.Seconds())
}

// StatsSource is anything reporting link counters; *link.Link does.
type StatsSource interface {
	Stats() link.Stats
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(link.Stats) uint64
}

// LinkCollector exports link and transport counters at scrape time, so
// the hot path only touches its own atomics.
type LinkCollector struct {
	src      StatsSource
	counters []counterDesc
	bindings *prometheus.Desc
}

func NewLinkCollector(src StatsSource) *LinkCollector {
	labels := []string{"link", "transport"}
	counter := func(subsystem, name, help string, value func(link.Stats) uint64) counterDesc {
		return counterDesc{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil),
			value: value,
		}
	}
	return &LinkCollector{
		src: src,
		counters: []counterDesc{
			counter("frame", "received_total", "Frames received with a valid checksum.",
				func(s link.Stats) uint64 { return s.Frames.Received }),
			counter("frame", "checksum_errors_total", "Frames dropped on checksum or length errors.",
				func(s link.Stats) uint64 { return s.Frames.Errors }),
			counter("frame", "overruns_total", "Frames dropped because the receiver had not consumed the last one.",
				func(s link.Stats) uint64 { return s.Frames.Overruns }),
			counter("frame", "decrypt_errors_total", "Encrypted frames that failed authentication.",
				func(s link.Stats) uint64 { return s.Frames.DecryptErrors }),
			counter("frame", "replay_errors_total", "Encrypted frames with a stale counter.",
				func(s link.Stats) uint64 { return s.Frames.ReplayErrors }),
			counter("frame", "plaintext_drops_total", "Plaintext frames dropped while encryption is required.",
				func(s link.Stats) uint64 { return s.Frames.PlaintextDrops }),
			counter("frame", "ignored_total", "Radio frames of an API type that carries no payload.",
				func(s link.Stats) uint64 { return s.Frames.Ignored }),
			counter("frame", "bytes_sent_total", "Frame bytes written to the device.",
				func(s link.Stats) uint64 { return s.Frames.BytesSent }),
			counter("frame", "sent_total", "Frames written to the device.",
				func(s link.Stats) uint64 { return s.Frames.MessagesSent }),
			counter("frame", "bytes_received_total", "Bytes fed to the parser.",
				func(s link.Stats) uint64 { return s.Frames.BytesReceived }),
			counter("link", "dispatched_total", "Messages handed to at least one callback.",
				func(s link.Stats) uint64 { return s.Dispatched }),
			counter("link", "decode_errors_total", "Valid frames whose payload did not decode.",
				func(s link.Stats) uint64 { return s.DecodeErrors }),
			counter("link", "sent_total", "Messages sent.",
				func(s link.Stats) uint64 { return s.Sent }),
			counter("link", "send_errors_total", "Messages that failed to send.",
				func(s link.Stats) uint64 { return s.SendErrors }),
		},
		bindings: prometheus.NewDesc(prometheus.BuildFQName(namespace, "link", "bindings"),
			"Registered callbacks.", labels, nil),
	}
}

func (c *LinkCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, cd := range c.counters {
		ch <- cd.desc
	}
	ch <- c.bindings
}

func (c *LinkCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	for _, cd := range c.counters {
		ch <- prometheus.MustNewConstMetric(cd.desc, prometheus.CounterValue, float64(cd.value(s)), s.Name, s.Transport)
	}
	ch <- prometheus.MustNewConstMetric(c.bindings, prometheus.GaugeValue, float64(s.Bindings), s.Name, s.Transport)
}

var _ prometheus.Collector = (*LinkCollector)(nil)
