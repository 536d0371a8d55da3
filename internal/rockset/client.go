package rockset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
	resty "github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
)

// RollupDescribeMessage is the API error text returned when DESCRIBE targets a
// rollup collection. Matching on it is best effort; the API has no error code for it.
const RollupDescribeMessage = "DESCRIBE is not supported on rollup collections"

const debugBodyLimit = 2 * 1024

// Client defines the interface for Rockset API operations.
type Client interface {
	// FetchEndpoint issues a GET for the endpoint and returns the body exactly as
	// received. A 401 is reported as an auth error; other HTTP failures are *HTTPError.
	FetchEndpoint(ctx context.Context, endpoint Endpoint) (json.RawMessage, error)

	// DescribeCollection runs DESCRIBE against workspace.collection and returns the
	// columns in result order. Rollup collections yield an empty, non-nil slice.
	DescribeCollection(ctx context.Context, workspace, collection string) ([]Field, error)
}

// Field describes one column of a collection
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// HTTPError is a non-2xx response. Body holds the response body as received;
// the embedded error carries the status and the API's "message".
type HTTPError struct {
	*api.HTTPError
	Body []byte
}

func (e *HTTPError) Unwrap() error {
	return e.HTTPError
}

// ClientOptions configures NewClient
type ClientOptions struct {
	APIKey string
	Server string

	// Transport overrides the HTTP transport, mostly for tests
	Transport http.RoundTripper

	// Log receives a trace of every HTTP exchange when non-nil
	Log            io.Writer
	LogVerboseHTTP bool

	// Verbose reports swallowed rollup errors through Notice
	Verbose bool
	Notice  func(format string, args ...interface{})
}

type queryRequest struct {
	SQL querySQL `json:"sql"`
}

type querySQL struct {
	Query string `json:"query"`
}

type describeResponse struct {
	Results []describeRow `json:"results"`
}

type describeRow struct {
	Field []string `json:"field"`
	Type  string   `json:"type"`
}

// clientImpl implements the Client interface using resty
type clientImpl struct {
	http    *resty.Client
	baseURL string
	verbose bool
	notice  func(format string, args ...interface{})
}

// NewClient creates a Rockset client authenticating with a static API key
func NewClient(opts ClientOptions) (Client, error) {
	if opts.APIKey == "" {
		return nil, apperrors.New(apperrors.ErrTypeValidation, "API key must not be empty")
	}

	return &clientImpl{
		http:    createHTTPClient(opts),
		baseURL: fmt.Sprintf("https://%s/v1/orgs/self", opts.Server),
		verbose: opts.Verbose,
		notice:  opts.Notice,
	}, nil
}

func createHTTPClient(opts ClientOptions) *resty.Client {
	logger := newTraceLogger(opts.Log)

	c := resty.New()
	c.SetLogger(logger)
	c.SetHeader("Authorization", "ApiKey "+opts.APIKey)
	c.SetHeader("Content-Type", "application/json")
	c.SetHeader("Accept", "application/json")

	if opts.Transport != nil {
		c.SetTransport(opts.Transport)
	}

	if opts.Log == nil {
		return c
	}

	// Full requests and responses when verbose, one line per exchange otherwise
	if opts.LogVerboseHTTP {
		c.SetDebug(true)
		c.SetDebugBodyLimit(debugBodyLimit)

		return c
	}

	c.OnAfterResponse(func(_ *resty.Client, response *resty.Response) error {
		logger.Debugf("%s", responseToLog(response))
		return nil
	})
	c.OnError(func(request *resty.Request, err error) {
		var respErr *resty.ResponseError
		if errors.As(err, &respErr) {
			logger.Errorf("%s", responseToLog(respErr.Response))
			return
		}

		logger.Errorf("%s %s | %s", request.Method, request.URL, err)
	})

	return c
}

func responseToLog(res *resty.Response) string {
	req := res.Request
	return fmt.Sprintf("%s %s | %d | %s", req.Method, req.URL, res.StatusCode(), res.Time())
}

// FetchEndpoint fetches the full listing of one endpoint
func (c *clientImpl) FetchEndpoint(ctx context.Context, endpoint Endpoint) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.baseURL + "/" + endpoint.String())
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeNetwork, "failed to fetch %s", endpoint)
	}

	if !resp.IsSuccess() {
		if resp.StatusCode() == http.StatusUnauthorized {
			return nil, apperrors.NewUnauthorizedError()
		}

		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, newHTTPError(resp))
	}

	return json.RawMessage(resp.Body()), nil
}

// DescribeCollection fetches the column list of a collection
func (c *clientImpl) DescribeCollection(ctx context.Context, workspace, collection string) ([]Field, error) {
	payload, err := json.Marshal(queryRequest{SQL: querySQL{Query: DescribeQuery(workspace, collection)}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode describe query: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.baseURL + "/queries")
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeNetwork, "failed to describe %s.%s", workspace, collection)
	}

	if !resp.IsSuccess() {
		httpErr := newHTTPError(resp)
		if strings.Contains(httpErr.Message, RollupDescribeMessage) {
			if c.verbose && c.notice != nil {
				c.notice("Error describing %s.%s: %s", workspace, collection, httpErr.Body)
			}

			return []Field{}, nil
		}

		return nil, httpErr
	}

	var result describeResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrTypeRocksetAPI,
			"describe %s.%s returned an unreadable response", workspace, collection)
	}

	fields := make([]Field, 0, len(result.Results))

	for i, row := range result.Results {
		if len(row.Field) == 0 {
			return nil, apperrors.Newf(apperrors.ErrTypeRocksetAPI,
				"describe %s.%s returned row %d without a field path", workspace, collection, i)
		}

		fields = append(fields, Field{
			Name: row.Field[len(row.Field)-1],
			Type: row.Type,
		})
	}

	return fields, nil
}

// newHTTPError builds the error for a non-2xx response. The message is the
// body's "message" key when present.
func newHTTPError(resp *resty.Response) *HTTPError {
	body := resp.Body()

	httpErr := &api.HTTPError{
		StatusCode: resp.StatusCode(),
		Headers:    resp.Header(),
		Message:    gjson.GetBytes(body, "message").String(),
	}

	if resp.Request != nil {
		if resp.Request.RawRequest != nil {
			httpErr.RequestURL = resp.Request.RawRequest.URL
		} else if u, err := url.Parse(resp.Request.URL); err == nil {
			httpErr.RequestURL = u
		}
	}

	return &HTTPError{HTTPError: httpErr, Body: body}
}

// DescribeQuery builds the DESCRIBE statement for a fully qualified collection
func DescribeQuery(workspace, collection string) string {
	return fmt.Sprintf("DESCRIBE %s.%s", quoteIdentifier(workspace), quoteIdentifier(collection))
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
