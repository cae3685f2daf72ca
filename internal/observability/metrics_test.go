package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danmuck/edgelink/internal/link"
	"github.com/danmuck/edgelink/internal/protocol/frame"
	"github.com/danmuck/edgelink/internal/testutil/testlog"
)

type fixedStats link.Stats

func (f fixedStats) Stats() link.Stats { return link.Stats(f) }

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("ground", "GET", "/health", 200, 12*time.Millisecond)
	RecordPoll("ground", 40*time.Microsecond)
}

func TestLinkCollectorExportsCounters(t *testing.T) {
	testlog.Start(t)
	src := fixedStats{
		Name:         "ground",
		Transport:    "pprz",
		Bindings:     2,
		Dispatched:   7,
		DecodeErrors: 1,
		Frames: frame.StatsSnapshot{
			Received: 8,
			Errors:   3,
		},
	}
	c := NewLinkCollector(src)
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}

	descs := make(chan *prometheus.Desc, 32)
	c.Describe(descs)
	close(descs)
	if len(descs) != 15 {
		t.Fatalf("expected 15 descriptors, got %d", len(descs))
	}

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read scrape: %v", err)
	}
	for _, want := range []string{
		`edgelink_frame_checksum_errors_total{link="ground",transport="pprz"} 3`,
		`edgelink_frame_received_total{link="ground",transport="pprz"} 8`,
		`edgelink_link_bindings{link="ground",transport="pprz"} 2`,
		`edgelink_link_dispatched_total{link="ground",transport="pprz"} 7`,
		`edgelink_link_decode_errors_total{link="ground",transport="pprz"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("scrape missing %q:\n%s", want, body)
		}
	}
}
