package monitor

import "fmt"

const DefaultThreshold = 100.0

type AlertState int

const (
	AlertNone AlertState = iota
	AlertHighDownload
	AlertHighUpload
	AlertBoth
)

func (s AlertState) String() string {
	switch s {
	case AlertNone:
		return "none"
	case AlertHighDownload:
		return "high download"
	case AlertHighUpload:
		return "high upload"
	case AlertBoth:
		return "high download and upload"
	default:
		return fmt.Sprintf("AlertState(%d)", int(s))
	}
}

// Evaluate compares both speeds against threshold. Only values strictly
// above the threshold raise an alert.
func Evaluate(download, upload, threshold float64) AlertState {
	highDownload := download > threshold
	highUpload := upload > threshold

	switch {
	case highDownload && highUpload:
		return AlertBoth
	case highDownload:
		return AlertHighDownload
	case highUpload:
		return AlertHighUpload
	default:
		return AlertNone
	}
}
