package speedtest

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

type fakeEdge struct {
	mu               sync.Mutex
	metadataFailures int
	metadataCalls    int
	uploaded         []int64
}

func (e *fakeEdge) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/__down", func(w http.ResponseWriter, r *http.Request) {
		size, err := strconv.ParseInt(r.URL.Query().Get("bytes"), 10, 64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if size == 0 {
			e.mu.Lock()
			e.metadataCalls += 1
			fail := e.metadataCalls <= e.metadataFailures
			e.mu.Unlock()
			if fail {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("cf-meta-ip", "192.0.2.10")
		w.Header().Set("cf-meta-asn", "64500")
		w.Header().Set("cf-meta-city", "Tokyo")
		w.Header().Set("cf-meta-colo", "NRT")
		w.Write(make([]byte, size))
	})

	mux.HandleFunc("/__up", func(w http.ResponseWriter, r *http.Request) {
		n, _ := io.Copy(io.Discard, r.Body)
		e.mu.Lock()
		e.uploaded = append(e.uploaded, n)
		e.mu.Unlock()
	})

	return mux
}

func newTestClient(server *httptest.Server) *Client {
	client := NewClient(server.Client(), server.URL)
	client.rttSoftTimeout = 20 * time.Millisecond
	client.bytesMin = 1024
	client.bytesMax = 4096
	client.timeThreshold = time.Hour
	client.measurementCount = 2
	return client
}

func TestFetchMetadata(t *testing.T) {
	server := httptest.NewServer((&fakeEdge{}).handler())
	defer server.Close()

	metadata, err := newTestClient(server).FetchMetadata(context.Background())

	assert.NilError(t, err)
	assert.DeepEqual(t, *metadata, Metadata{
		SrcIP:      "192.0.2.10",
		SrcASN:     "64500",
		SrcCity:    "Tokyo",
		SrcCountry: "N/A",
		DstColo:    "NRT",
	})
}

func TestFetchMetadata_HTTPError(t *testing.T) {
	server := httptest.NewServer((&fakeEdge{metadataFailures: 1}).handler())
	defer server.Close()

	_, err := newTestClient(server).FetchMetadata(context.Background())

	assert.ErrorContains(t, err, "503")
}

func TestMeasureSpeedAdaptive_Downlink(t *testing.T) {
	server := httptest.NewServer((&fakeEdge{}).handler())
	defer server.Close()

	stats, err := newTestClient(server).MeasureSpeedAdaptive(context.Background(), DirectionDownlink)

	assert.NilError(t, err)
	assert.Equal(t, stats.Direction, DirectionDownlink)
	assert.Equal(t, stats.TXSize, int64(2*4096))
	assert.Assert(t, stats.BitsPerSecond > 0)
}

func TestMeasureSpeedAdaptive_Uplink(t *testing.T) {
	edge := &fakeEdge{}
	server := httptest.NewServer(edge.handler())
	defer server.Close()

	stats, err := newTestClient(server).MeasureSpeedAdaptive(context.Background(), DirectionUplink)

	assert.NilError(t, err)
	assert.Equal(t, stats.TXSize, int64(2*4096))
	assert.DeepEqual(t, edge.uploaded, []int64{1024, 2048, 4096, 4096})
}

func TestMeasureRTT(t *testing.T) {
	server := httptest.NewServer((&fakeEdge{}).handler())
	defer server.Close()

	stats, err := newTestClient(server).MeasureRTT(context.Background())

	assert.NilError(t, err)
	assert.Assert(t, stats.NSamples >= 1)
}

func TestProbeWithClient_RetriesUntilMetadataAvailable(t *testing.T) {
	edge := &fakeEdge{metadataFailures: 2}
	server := httptest.NewServer(edge.handler())
	defer server.Close()

	sleeper := &recordingSleeper{}
	probe := newTestProbe(newTestClient(server), sleeper, &bytes.Buffer{})
	probe.Logger = log.New(io.Discard, "", 0)

	throughput, err := probe.Measure(context.Background())

	assert.NilError(t, err)
	assert.Equal(t, len(sleeper.calls), 2)
	assert.Assert(t, throughput.DownloadMbps > 0)
	assert.Assert(t, throughput.UploadMbps > 0)
}

func TestNewHTTPClient_RejectsUnknownProtocol(t *testing.T) {
	_, err := NewHTTPClient("udp", 0)
	assert.ErrorContains(t, err, "unsupported transport protocol")

	client, err := NewHTTPClient("tcp4", time.Second)
	assert.NilError(t, err)
	assert.Assert(t, client.Transport != nil)
}
