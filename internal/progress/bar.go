package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

const (
	barWidth        = 40
	spinnerInterval = 100 * time.Millisecond
	spinnerCharSet  = 14
)

// BarReporter draws progress bars on a terminal
type BarReporter struct {
	w           io.Writer
	endpoints   *progressbar.ProgressBar
	collections *progressbar.ProgressBar
}

// NewBarReporter creates a reporter drawing on w
func NewBarReporter(w io.Writer) *BarReporter {
	return &BarReporter{w: w}
}

func (r *BarReporter) newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(barWidth),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(50*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(r.w)
		}),
	)
}

// active returns the bar currently on screen
func (r *BarReporter) active() *progressbar.ProgressBar {
	if r.collections != nil {
		return r.collections
	}

	return r.endpoints
}

func (r *BarReporter) StartEndpoints(total int) {
	r.endpoints = r.newBar(total, "Processing endpoints")
	_ = r.endpoints.RenderBlank()
}

func (r *BarReporter) EndpointStarted(name string) {
	r.Printf("Processing endpoint: %s", name)
}

func (r *BarReporter) EndpointDone() {
	if r.endpoints != nil {
		_ = r.endpoints.Add(1)
	}
}

func (r *BarReporter) StartCollections(total int) {
	if r.endpoints != nil {
		_ = r.endpoints.Clear()
	}

	r.collections = r.newBar(total, "Processing collections")
	_ = r.collections.RenderBlank()
}

func (r *BarReporter) CollectionDone() {
	if r.collections != nil {
		_ = r.collections.Add(1)
	}
}

func (r *BarReporter) FinishCollections() {
	if r.collections == nil {
		return
	}

	// An empty bar never reaches its max, so completion is forced
	if !r.collections.IsFinished() {
		_ = r.collections.Finish()
	}

	r.collections = nil

	if r.endpoints != nil {
		_ = r.endpoints.RenderBlank()
	}
}

func (r *BarReporter) Spin(message string) func() {
	if bar := r.active(); bar != nil {
		_ = bar.Clear()
	}

	s := spinner.New(spinner.CharSets[spinnerCharSet], spinnerInterval,
		spinner.WithWriter(r.w),
		spinner.WithSuffix(" "+message),
		spinner.WithFinalMSG(message+" done\n"),
	)
	s.Start()

	return func() {
		s.Stop()

		if bar := r.active(); bar != nil {
			_ = bar.RenderBlank()
		}
	}
}

func (r *BarReporter) Printf(format string, args ...interface{}) {
	bar := r.active()
	if bar != nil {
		_ = bar.Clear()
	}

	_, _ = fmt.Fprintf(r.w, format+"\n", args...)

	if bar != nil {
		_ = bar.RenderBlank()
	}
}

func (r *BarReporter) Finish() {
	r.FinishCollections()

	if r.endpoints != nil && !r.endpoints.IsFinished() {
		_ = r.endpoints.Finish()
	}

	r.endpoints = nil
}
