package speedtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://speed.cloudflare.com"

	downPathTemplate = "/__down?bytes=%d"
	upPath           = "/__up"

	rttMeasurementSoftTimeout = 2 * time.Second // Test element starts unless exceeding this duration

	adaptiveMeasurementBytesMin      = int64(64 * 1024)         // 64 KiB
	adaptiveMeasurementBytesMax      = int64(256 * 1024 * 1024) // 256 MiB
	adaptiveMeasurementExpBase       = 2                        // 64 k, 128 k, 256 k, 512 k, 1 M, 2 M, 4 M, 8 M, 16 M, 32 M, 64 M, 128 M, 256 M
	adaptiveMeasurementTimeThreshold = 2 * time.Second
	adaptiveMeasurementCount         = 5

	downlinkReadTimeLimit = 10 * time.Second
)

// Client talks to the Cloudflare speed-test endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	now        func() time.Time

	rttSoftTimeout   time.Duration
	bytesMin         int64
	bytesMax         int64
	timeThreshold    time.Duration
	measurementCount int
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient:       httpClient,
		baseURL:          baseURL,
		now:              time.Now,
		rttSoftTimeout:   rttMeasurementSoftTimeout,
		bytesMin:         adaptiveMeasurementBytesMin,
		bytesMax:         adaptiveMeasurementBytesMax,
		timeThreshold:    adaptiveMeasurementTimeThreshold,
		measurementCount: adaptiveMeasurementCount,
	}
}

func flushHTTPResponse(resp *http.Response, body io.Reader) (int64, error) {
	flushedSize, err := io.Copy(io.Discard, body)
	if err != nil {
		resp.Body.Close()
		return 0, err
	}
	err = resp.Body.Close()
	if err != nil {
		return 0, err
	}

	return flushedSize, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return errors.Errorf("unexpected HTTP status %s", resp.Status)
	}
	return nil
}

func (c *Client) FetchMetadata(ctx context.Context) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fmt.Sprintf(downPathTemplate, 0), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	_, err = flushHTTPResponse(resp, resp.Body)
	if err != nil {
		return nil, err
	}

	srcCity := resp.Header.Get("cf-meta-city")
	if srcCity == "" {
		srcCity = "N/A"
	}

	srcCountry := resp.Header.Get("cf-meta-country")
	if srcCountry == "" {
		srcCountry = "N/A"
	}

	return &Metadata{
		SrcIP:      resp.Header.Get("cf-meta-ip"),
		SrcASN:     resp.Header.Get("cf-meta-asn"),
		SrcCity:    srcCity,
		SrcCountry: srcCountry,
		DstColo:    resp.Header.Get("cf-meta-colo"),
	}, nil
}

func (c *Client) MeasureRTT(ctx context.Context) (*Stats, error) {
	durations := []time.Duration{}

	for start := c.now(); c.now().Sub(start) < c.rttSoftTimeout; {
		measurement, err := c.measure(ctx, DirectionUplink, 0)
		if err != nil {
			return nil, err
		}
		durations = append(durations, measurement.Duration)
	}

	return getDurationMSStats(durations), nil
}

func (c *Client) measure(ctx context.Context, direction Direction, size int64) (*SpeedMeasurement, error) {
	if direction == DirectionDownlink {
		return c.measureDownlink(ctx, size)
	}
	return c.measureUplink(ctx, size)
}

func (c *Client) measureDownlink(ctx context.Context, size int64) (*SpeedMeasurement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fmt.Sprintf(downPathTemplate, size), nil)
	if err != nil {
		return nil, err
	}

	start := c.now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	sampler := newSamplingReader(resp.Body, IOModeRead, size, start.Add(downlinkReadTimeLimit), c.now)
	if _, err := flushHTTPResponse(resp, sampler); err != nil {
		return nil, err
	}

	end := c.now()

	return &SpeedMeasurement{
		Direction: DirectionDownlink,
		Size:      sampler.SizeRead,
		Start:     start,
		End:       end,
		Duration:  end.Sub(start),
		IOSampler: sampler.IOSampler,
	}, nil
}

func (c *Client) measureUplink(ctx context.Context, size int64) (*SpeedMeasurement, error) {
	sampler := newSamplingReader(zeroReader{}, IOModeWrite, size, time.Time{}, c.now)

	var body io.Reader = sampler
	if size == 0 {
		body = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+upPath, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	start := c.now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	end := c.now()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	if _, err := flushHTTPResponse(resp, resp.Body); err != nil {
		return nil, err
	}

	return &SpeedMeasurement{
		Direction: DirectionUplink,
		Size:      size,
		Start:     start,
		End:       end,
		Duration:  end.Sub(start),
		IOSampler: sampler.IOSampler,
	}, nil
}

// MeasureSpeedAdaptive grows the transfer size until a single transfer takes
// long enough to be meaningful, then keeps that size for the remaining runs.
func (c *Client) MeasureSpeedAdaptive(ctx context.Context, direction Direction) (*SpeedMeasurementStats, error) {
	measurements := []*SpeedMeasurement{}
	measurementBytes := c.bytesMin

	for len(measurements) < c.measurementCount {
		measurement, err := c.measure(ctx, direction, measurementBytes)
		if err != nil {
			return nil, errors.Wrapf(err, "%s measurement of %d bytes", direction, measurementBytes)
		}

		if len(measurements) == 0 && measurement.Duration < c.timeThreshold && measurementBytes < c.bytesMax {
			measurementBytes *= adaptiveMeasurementExpBase
		} else {
			measurements = append(measurements, measurement)
		}
	}

	return getSpeedMeasurementStats(direction, measurements), nil
}
