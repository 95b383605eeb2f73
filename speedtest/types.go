package speedtest

import (
	"time"
)

type Direction string

const (
	DirectionDownlink Direction = "down"
	DirectionUplink   Direction = "up"
)

type IOMode string

const (
	IOModeRead  IOMode = "read"
	IOModeWrite IOMode = "write"
)

// Metadata is what the speed-test edge reports about the client and itself.
// Fetching it is the configuration step of a measurement.
type Metadata struct {
	SrcIP      string
	SrcASN     string
	SrcCity    string
	SrcCountry string
	DstColo    string
}

type Sample[T any] struct {
	Value     T
	Timestamp time.Time
}

type Stats struct {
	NSamples int
	Mean     float64
	StdDev   float64
	StdErr   float64
	Min      float64
	MinIndex int
	Max      float64
	MaxIndex int
	Deciles  []float64
}

type SpeedMeasurement struct {
	Direction Direction
	Size      int64
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	IOSampler IOSampler
}

type SpeedMeasurementStats struct {
	Stats
	Direction Direction
	TXSize    int64

	// CatSpeed is the aggregate speed over all measurements, in Mbps.
	CatSpeed float64
	// BitsPerSecond is CatSpeed before unit conversion.
	BitsPerSecond float64
}

// Report is the full outcome of one detailed speed test run.
type Report struct {
	Metadata *Metadata
	RTT      *Stats
	Downlink *SpeedMeasurementStats
	Uplink   *SpeedMeasurementStats
}

// Throughput is a single download/upload result in megabits per second.
type Throughput struct {
	DownloadMbps float64
	UploadMbps   float64
	TakenAt      time.Time
}
