// Package export drives a full export: it fetches every endpoint, enriches
// collections with their schema and writes one JSON file per endpoint.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kyleking/rockset-org-metadata/internal/logging"
	"github.com/kyleking/rockset-org-metadata/internal/output"
	"github.com/kyleking/rockset-org-metadata/internal/progress"
	"github.com/kyleking/rockset-org-metadata/internal/rockset"
	"github.com/kyleking/rockset-org-metadata/internal/storage"
)

// Options configures an Exporter. Only Client and Writer are required.
type Options struct {
	Client rockset.Client
	Writer *output.Writer

	// Limit truncates the collections list when non-nil
	Limit *int

	// APIServer is recorded with catalog runs
	APIServer string

	Progress progress.Reporter
	Catalog  storage.Catalog
	Logger   *logging.Logger

	// Stdout receives the completion message
	Stdout io.Writer
}

// Summary describes a finished export
type Summary struct {
	RunID       string        `json:"run_id,omitempty"`
	OutputDir   string        `json:"output_dir"`
	Endpoints   int           `json:"endpoints"`
	Collections int           `json:"collections"`
	NoFields    int           `json:"collections_without_fields"`
	Files       []string      `json:"files"`
	Duration    time.Duration `json:"duration"`
}

// Exporter runs exports sequentially, one request in flight at a time
type Exporter struct {
	client    rockset.Client
	writer    *output.Writer
	limit     *int
	apiServer string
	progress  progress.Reporter
	catalog   storage.Catalog
	logger    *logging.Logger
	stdout    io.Writer
	endpoints []rockset.Endpoint
}

// New creates an Exporter, filling unset optional dependencies with defaults
func New(opts Options) *Exporter {
	e := &Exporter{
		client:    opts.Client,
		writer:    opts.Writer,
		limit:     opts.Limit,
		apiServer: opts.APIServer,
		progress:  opts.Progress,
		catalog:   opts.Catalog,
		logger:    opts.Logger,
		stdout:    opts.Stdout,
		endpoints: rockset.Endpoints(),
	}

	if e.progress == nil {
		e.progress = progress.Discard()
	}

	if e.logger == nil {
		e.logger = logging.GetLogger()
	}

	if e.stdout == nil {
		e.stdout = os.Stdout
	}

	return e
}

// Run exports every endpoint. Files written before a failure stay on disk.
func (e *Exporter) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	if err := e.writer.EnsureDir(); err != nil {
		return nil, err
	}

	summary := &Summary{
		OutputDir: e.writer.Dir(),
		Files:     []string{},
	}

	if e.catalog != nil {
		runID, err := e.beginCatalogRun(ctx)
		if err != nil {
			return nil, err
		}

		summary.RunID = runID
	}

	err := e.exportAll(ctx, summary)

	if e.catalog != nil {
		// The run is closed out even when ctx was cancelled
		finishErr := e.catalog.FinishRun(context.WithoutCancel(ctx), summary.RunID, err)
		if err == nil {
			err = finishErr
		}
	}

	summary.Duration = time.Since(start)

	if err != nil {
		return summary, err
	}

	_, _ = fmt.Fprintf(e.stdout, "Rockset org metadata created in the '%s' directory.\n", summary.OutputDir)

	return summary, nil
}

func (e *Exporter) beginCatalogRun(ctx context.Context) (string, error) {
	stop := e.progress.Spin("Preparing catalog")
	defer stop()

	if err := e.catalog.Initialize(ctx); err != nil {
		return "", err
	}

	return e.catalog.BeginRun(ctx, e.apiServer)
}

func (e *Exporter) exportAll(ctx context.Context, summary *Summary) error {
	e.progress.StartEndpoints(len(e.endpoints))
	defer e.progress.Finish()

	for _, endpoint := range e.endpoints {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.exportEndpoint(ctx, endpoint, summary); err != nil {
			return err
		}

		e.progress.EndpointDone()
	}

	return nil
}

func (e *Exporter) exportEndpoint(ctx context.Context, endpoint rockset.Endpoint, summary *Summary) error {
	log := e.logger.WithField("endpoint", endpoint.String())

	e.progress.EndpointStarted(endpoint.String())

	doc, err := e.client.FetchEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}

	if endpoint == rockset.EndpointCollections {
		doc, err = e.enrichCollections(ctx, doc, summary)
		if err != nil {
			return err
		}
	}

	path, err := e.writer.Write(endpoint.String(), doc)
	if err != nil {
		return err
	}

	if e.catalog != nil {
		if err := e.catalog.StoreDocument(ctx, summary.RunID, endpoint.String(), json.RawMessage(doc)); err != nil {
			return err
		}
	}

	summary.Endpoints++
	summary.Files = append(summary.Files, path)

	log.WithFields(map[string]interface{}{
		"file":    path,
		"records": storage.RecordCount(doc),
	}).Debug("Endpoint exported")

	return nil
}
