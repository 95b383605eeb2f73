package speedtest

import (
	"fmt"
	"log"
)

func printMetadata(printer *log.Logger, metadata *Metadata) {
	if metadata != nil {
		printer.Printf("SrcIP: %s (AS%s)\n", metadata.SrcIP, metadata.SrcASN)
		printer.Printf("SrcLocation: %s, %s\n", metadata.SrcCity, metadata.SrcCountry)
		printer.Printf("DstColocation: %s\n", metadata.DstColo)
	}
}

func formatDeciles(deciles []float64) string {
	numStrs := []string{}

	for _, decile := range deciles {
		numStrs = append(numStrs, fmt.Sprintf("%.3f", decile))
	}

	return fmt.Sprintf("%v", numStrs)
}

func printRTTMeasurement(printer *log.Logger, measurement *Stats) {
	if measurement != nil {
		printer.Printf("RTT-mean: %.3f ms\n", measurement.Mean)
		printer.Printf("RTT-stderr: %.3f ms\n", measurement.StdErr)
		printer.Printf("RTT-min: %.3f ms\n", measurement.Min)
		printer.Printf("RTT-max: %.3f ms\n", measurement.Max)
		printer.Printf("RTT-deciles: %s ms\n", formatDeciles(measurement.Deciles))
		printer.Printf("RTT-n: %d\n", measurement.NSamples)
	}
}

func printSpeedMeasurement(printer *log.Logger, label string, measurement *SpeedMeasurementStats) {
	if measurement != nil {
		printer.Printf("%s-mean: %.3f Mbps\n", label, measurement.Mean)
		printer.Printf("%s-stderr: %.3f Mbps\n", label, measurement.StdErr)
		printer.Printf("%s-min: %.3f Mbps\n", label, measurement.Min)
		printer.Printf("%s-max: %.3f Mbps\n", label, measurement.Max)
		printer.Printf("%s-deciles: %s Mbps\n", label, formatDeciles(measurement.Deciles))
		printer.Printf("%s-cat: %.3f Mbps\n", label, measurement.CatSpeed)
		printer.Printf("%s-tx: %.3f MiB\n", label, float64(measurement.TXSize)/1024/1024)
		printer.Printf("%s-n: %d\n", label, measurement.NSamples)
	}
}

// PrintReport writes the detailed report followed by the Mbps summary.
func PrintReport(printer *log.Logger, report *Report, throughput *Throughput) {
	printMetadata(printer, report.Metadata)
	printer.Println()

	if report.RTT != nil {
		printRTTMeasurement(printer, report.RTT)
		printer.Println()
	}

	printSpeedMeasurement(printer, "Downlink", report.Downlink)
	printer.Println()

	printSpeedMeasurement(printer, "Uplink", report.Uplink)
	printer.Println()

	PrintThroughput(printer, throughput)
}

func PrintThroughput(printer *log.Logger, throughput *Throughput) {
	printer.Printf("Download Speed: %.2f Mbps\n", throughput.DownloadMbps)
	printer.Printf("Upload Speed: %.2f Mbps\n", throughput.UploadMbps)
}
