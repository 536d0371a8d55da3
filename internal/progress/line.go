package progress

import (
	"fmt"
	"io"
	"sync"
)

// LineReporter writes one plain line per event, for logs and pipes
type LineReporter struct {
	mu sync.Mutex
	w  io.Writer

	endpointsTotal   int
	endpointsDone    int
	collectionsTotal int
	collectionsDone  int
}

// NewLineReporter creates a reporter writing lines to w
func NewLineReporter(w io.Writer) *LineReporter {
	return &LineReporter{w: w}
}

func (r *LineReporter) println(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.w, format+"\n", args...)
}

func (r *LineReporter) StartEndpoints(total int) {
	r.endpointsTotal = total
	r.endpointsDone = 0
}

func (r *LineReporter) EndpointStarted(name string) {
	r.println("Processing endpoint: %s", name)
}

func (r *LineReporter) EndpointDone() {
	r.endpointsDone++
	r.println("Processing endpoints: %d/%d", r.endpointsDone, r.endpointsTotal)
}

func (r *LineReporter) StartCollections(total int) {
	r.collectionsTotal = total
	r.collectionsDone = 0
	r.println("Processing collections: 0/%d", total)
}

func (r *LineReporter) CollectionDone() {
	r.collectionsDone++
	r.println("Processing collections: %d/%d", r.collectionsDone, r.collectionsTotal)
}

func (r *LineReporter) FinishCollections() {}

func (r *LineReporter) Spin(message string) func() {
	r.println("%s...", message)

	return func() {
		r.println("%s done", message)
	}
}

func (r *LineReporter) Printf(format string, args ...interface{}) {
	r.println(format, args...)
}

func (r *LineReporter) Finish() {}

// Counts returns the completed endpoint and collection counts
func (r *LineReporter) Counts() (endpoints, collections int) {
	return r.endpointsDone, r.collectionsDone
}
