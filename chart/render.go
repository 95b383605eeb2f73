package chart

import (
	"context"
	"fmt"
	"math"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/pkg/errors"
)

type update struct {
	point Point
	err   error
}

func plotTitle(points []Point, finished bool) string {
	if len(points) == 0 {
		return " Bandwidth Usage (MB) "
	}

	last := points[len(points)-1]
	title := fmt.Sprintf(" Bandwidth Usage (MB) | %.2f MB at %.0fs ", last.CumulativeMB, last.ElapsedSeconds)
	if finished {
		title += "| done, press any key "
	} else {
		title += "| q to stop "
	}
	return title
}

// plotSeries places each point in the slot for its elapsed time, one slot per
// interval, carrying the previous value across slots a late sample skipped.
// termui labels the x axis with slot indexes, so the axis reads in intervals
// rather than in samples. It returns nil until there are two slots; the
// braille plot cannot draw a single value.
func plotSeries(points []Point, interval time.Duration) [][]float64 {
	if len(points) == 0 || interval <= 0 {
		return nil
	}

	series := []float64{}
	for _, point := range points {
		slot := int(math.Round(point.ElapsedSeconds / interval.Seconds()))
		for len(series) > 0 && len(series) < slot {
			series = append(series, series[len(series)-1])
		}
		if slot < len(series) {
			series[len(series)-1] = point.CumulativeMB
			continue
		}
		series = append(series, point.CumulativeMB)
	}

	if len(series) < 2 {
		return nil
	}
	return [][]float64{series}
}

// Render draws the feed live in the terminal. It returns when the operator
// presses a key after the feed finished, or presses q / <C-c> earlier.
func Render(ctx context.Context, feed *Feed) error {
	if err := ui.Init(); err != nil {
		return errors.Wrap(err, "failed to init termui")
	}
	defer ui.Close()

	feedCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan update)
	go func() {
		defer close(updates)
		for point, err := range feed.Points(feedCtx) {
			select {
			case updates <- update{point: point, err: err}:
			case <-feedCtx.Done():
				return
			}
		}
	}()

	plot := widgets.NewPlot()
	plot.Title = plotTitle(nil, false)
	plot.LineColors = []ui.Color{ui.ColorBlue}
	plot.AxesColor = ui.ColorWhite

	termWidth, termHeight := ui.TerminalDimensions()
	plot.SetRect(0, 0, termWidth, termHeight)
	ui.Render(plot)

	points := []Point{}
	finished := false
	uiEvents := ui.PollEvents()

	for {
		select {
		case e := <-uiEvents:
			if e.Type == ui.KeyboardEvent && (finished || e.ID == "q" || e.ID == "<C-c>") {
				return nil
			}
			if e.Type == ui.ResizeEvent {
				payload := e.Payload.(ui.Resize)
				plot.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				ui.Render(plot)
			}
		case u, ok := <-updates:
			if !ok {
				finished = true
				updates = nil
				plot.Title = plotTitle(points, true)
				ui.Render(plot)
				continue
			}
			if u.err != nil {
				return u.err
			}
			points = append(points, u.point)
			plot.Title = plotTitle(points, false)
			if series := plotSeries(points, feed.Interval); series != nil {
				plot.Data = series
			}
			ui.Render(plot)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
