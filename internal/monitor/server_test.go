package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/edgelink/internal/device"
	"github.com/danmuck/edgelink/internal/link"
	"github.com/danmuck/edgelink/internal/protocol/codec"
	"github.com/danmuck/edgelink/internal/protocol/frame"
	"github.com/danmuck/edgelink/internal/protocol/message"
	"github.com/danmuck/edgelink/internal/protocol/schema"
	"github.com/danmuck/edgelink/internal/testutil/testlog"
)

const catalogXML = `<protocol>
  <msg_class name="telemetry" id="1">
    <message name="ALIVE" id="2">
      <field name="md5sum" type="uint8[]"/>
    </message>
    <message name="GPS" id="8">
      <field name="mode" type="uint8"/>
      <field name="utm" type="int32[2]"/>
    </message>
  </msg_class>
</protocol>`

func setup(t *testing.T) (*Server, *link.Link, *link.Link) {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	c, err := schema.LoadXML(bytes.NewBufferString(catalogXML))
	require.NoError(t, err)
	a, b := device.Pipe()
	tx := link.New(a, frame.NewPlainFrame(), c, link.WithName("air"))
	rx := link.New(b, frame.NewPlainFrame(), c, link.WithName("ground"))
	return New("ground", rx, c), tx, rx
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealth(t *testing.T) {
	s, _, _ := setup(t)
	rr := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ground", body["service"])
}

func TestStatsReflectTraffic(t *testing.T) {
	s, tx, rx := setup(t)
	def, err := rx.Catalog().Lookup("ALIVE")
	require.NoError(t, err)
	_, err = rx.Bind(def, func(uint8, *message.Message) {})
	require.NoError(t, err)

	require.NoError(t, tx.Send(message.New(def).MustSet("md5sum", codec.Uint8Array{1, 2, 3})))
	n, err := rx.Poll()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rr := get(t, s, "/stats")
	require.Equal(t, http.StatusOK, rr.Code)
	var stats link.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, "ground", stats.Name)
	assert.Equal(t, "pprz", stats.Transport)
	assert.Equal(t, 1, stats.Bindings)
	assert.Equal(t, uint64(1), stats.Dispatched)
	assert.Equal(t, uint64(1), stats.Frames.Received)
}

func TestCatalogRoutes(t *testing.T) {
	s, _, _ := setup(t)

	rr := get(t, s, "/catalog")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Messages []DefinitionInfo `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Messages, 2)
	assert.Equal(t, "ALIVE", list.Messages[0].Name)
	assert.Equal(t, "GPS", list.Messages[1].Name)

	rr = get(t, s, "/catalog/GPS")
	require.Equal(t, http.StatusOK, rr.Code)
	var gps DefinitionInfo
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &gps))
	assert.Equal(t, "telemetry", gps.Class)
	assert.Equal(t, uint8(8), gps.ID)
	assert.Equal(t, 9, gps.MinSize)
	require.Len(t, gps.Fields, 2)
	assert.Equal(t, FieldInfo{Name: "utm", Type: "int32[2]", Size: 8}, gps.Fields[1])

	rr = get(t, s, "/catalog/NOPE")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetricsExposeLinkCounters(t *testing.T) {
	s, _, _ := setup(t)
	get(t, s, "/health")
	rr := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `edgelink_frame_received_total{link="ground",transport="pprz"} 0`)
	assert.Contains(t, rr.Body.String(), "edgelink_http_requests_total")
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	s, _, _ := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestTokenGuardsAllButHealth(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	c, err := schema.LoadXML(bytes.NewBufferString(catalogXML))
	require.NoError(t, err)
	a, _ := device.Pipe()
	s := New("guarded", link.New(a, frame.NewPlainFrame(), c), c, WithToken("s3cret"))

	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, s, "/stats").Code)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	s, _, _ := setup(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatalf("Serve did not stop")
	}
}
