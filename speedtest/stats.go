package speedtest

import (
	"math"
	"slices"
	"time"
)

const (
	ioSamplingWindowWidth = 100 * time.Millisecond

	bitsPerMegabit = 1_000_000
)

func getMean(series []float64) float64 {
	ret := float64(0)
	nSamplesF64 := float64(len(series))

	for _, element := range series {
		ret += element / nSamplesF64
	}

	return ret
}

func getSquareMean(series []float64) float64 {
	ret := float64(0)
	nSamplesF64 := float64(len(series))

	for _, element := range series {
		ret += element * element / nSamplesF64
	}

	return ret
}

// getDeciles picks the nearest-rank 10th..90th percentiles.
func getDeciles(series []float64) []float64 {
	if len(series) == 0 {
		return []float64{}
	}

	sorted := slices.Clone(series)
	slices.Sort(sorted)

	ret := make([]float64, 0, 9)
	for decile := 1; decile <= 9; decile += 1 {
		index := int(math.Round(float64(decile*(len(sorted)-1)) / 10))
		ret = append(ret, sorted[index])
	}

	return ret
}

func getF64Stats(series []float64) *Stats {
	ret := &Stats{
		Min:      math.Inf(1),
		Max:      math.Inf(-1),
		MinIndex: 0,
		MaxIndex: 0,
	}

	for index, element := range series {
		if element < ret.Min {
			ret.Min = element
			ret.MinIndex = index
		}
		if element > ret.Max {
			ret.Max = element
			ret.MaxIndex = index
		}
	}

	ret.NSamples = len(series)
	if ret.NSamples == 0 {
		ret.Min, ret.Max = 0, 0
		ret.Deciles = []float64{}
		return ret
	}

	ret.Mean = getMean(series)
	ret.StdDev = math.Sqrt(math.Max(getSquareMean(series)-ret.Mean*ret.Mean, 0))
	ret.StdErr = ret.StdDev / math.Sqrt(float64(ret.NSamples))
	ret.Deciles = getDeciles(series)

	return ret
}

func getDurationMSStats(durations []time.Duration) *Stats {
	durationSamples := []float64{}

	for _, duration := range durations {
		durationMSF64 := float64(duration.Microseconds()) / 1000
		durationSamples = append(durationSamples, durationMSF64)
	}

	return getF64Stats(durationSamples)
}

// analyseIOEvents folds IO events into Mbps samples, one per elapsed sampling
// window. A window closes on the first event at least ioSamplingWindowWidth
// after the window opened.
func analyseIOEvents(start time.Time, ioEvents []*IOEvent) []*Sample[float64] {
	mbpsSamples := []*Sample[float64]{}

	windowStart := start
	sizeSum := 0
	for _, event := range ioEvents {
		sizeSum += event.Size

		sinceStart := event.Timestamp.Sub(windowStart)
		if sinceStart >= ioSamplingWindowWidth {
			mbpsSamples = append(mbpsSamples, &Sample[float64]{
				Value:     float64(8*sizeSum) / float64(sinceStart.Microseconds()),
				Timestamp: event.Timestamp,
			})

			windowStart = event.Timestamp
			sizeSum = 0
		}
	}

	return mbpsSamples
}

func analyseMeasurements(measurements []*SpeedMeasurement) ([]*Sample[float64], int64, int64) {
	mbpsSamples := []*Sample[float64]{}
	sizeSum := int64(0)
	durationSum := int64(0)

	for _, measurement := range measurements {
		mbpsSamples = append(mbpsSamples, analyseIOEvents(measurement.Start, measurement.IOSampler.Events)...)
		sizeSum += measurement.Size
		durationSum += measurement.Duration.Microseconds()
	}

	return mbpsSamples, sizeSum, durationSum
}

func getSpeedMeasurementStats(direction Direction, measurements []*SpeedMeasurement) *SpeedMeasurementStats {
	mbpsSamples, sizeSum, durationSum := analyseMeasurements(measurements)

	values := make([]float64, 0, len(mbpsSamples))
	for _, sample := range mbpsSamples {
		values = append(values, sample.Value)
	}

	ret := &SpeedMeasurementStats{
		Stats:     *getF64Stats(values),
		Direction: direction,
		TXSize:    sizeSum,
	}

	if durationSum > 0 {
		ret.BitsPerSecond = float64(8*sizeSum) / (float64(durationSum) / 1e6)
		ret.CatSpeed = ret.BitsPerSecond / bitsPerMegabit
	}

	return ret
}
