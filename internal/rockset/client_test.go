package rockset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
)

const testServer = "api.test.rockset.com"

var queriesURL = fmt.Sprintf("https://%s/v1/orgs/self/queries", testServer)

func endpointURL(e Endpoint) string {
	return fmt.Sprintf("https://%s/v1/orgs/self/%s", testServer, e)
}

// jsonResponder replies with a raw JSON body, keeping its bytes as written
func jsonResponder(status int, body string) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/json")
		resp.Request = req

		return resp, nil
	}
}

func newTestClient(t *testing.T, opts ClientOptions) (Client, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()

	opts.APIKey = "test-key"
	opts.Server = testServer
	opts.Transport = transport

	client, err := NewClient(opts)
	require.NoError(t, err)

	return client, transport
}

func TestEndpointsOrder(t *testing.T) {
	names := make([]string, 0, len(Endpoints()))
	for _, e := range Endpoints() {
		names = append(names, e.String())
	}

	assert.Equal(t, []string{"users", "collections", "integrations", "lambdas", "aliases", "views", "ws"}, names)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(ClientOptions{Server: testServer})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestFetchEndpoint_Success(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})

	raw := `{"data":[{"email":"a@example.com","created_at":"2024-01-01"}]}`
	transport.RegisterResponder(http.MethodGet, endpointURL(EndpointUsers), jsonResponder(http.StatusOK, raw))

	body, err := client.FetchEndpoint(context.Background(), EndpointUsers)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(body))
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET "+endpointURL(EndpointUsers)])
}

func TestFetchEndpoint_Unauthorized(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})
	transport.RegisterResponder(http.MethodGet, endpointURL(EndpointUsers),
		jsonResponder(http.StatusUnauthorized, `{"message":"invalid api key"}`))

	_, err := client.FetchEndpoint(context.Background(), EndpointUsers)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeAuth))
	assert.Contains(t, err.Error(), apperrors.UnauthorizedMessage)
	assert.NotContains(t, err.Error(), "invalid api key")
}

func TestFetchEndpoint_OtherHTTPErrorPropagates(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})

	body := `{"message":"internal error","type":"INTERNALERROR"}`
	transport.RegisterResponder(http.MethodGet, endpointURL(EndpointLambdas),
		jsonResponder(http.StatusInternalServerError, body))

	_, err := client.FetchEndpoint(context.Background(), EndpointLambdas)
	require.Error(t, err)
	assert.False(t, apperrors.IsType(err, apperrors.ErrTypeAuth))
	assert.Contains(t, err.Error(), "failed to fetch lambdas")

	var ghErr *api.HTTPError
	require.True(t, errors.As(err, &ghErr))
	assert.Equal(t, http.StatusInternalServerError, ghErr.StatusCode)
	assert.Equal(t, "internal error", ghErr.Message)
	assert.Equal(t, endpointURL(EndpointLambdas), ghErr.RequestURL.String())

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, body, string(httpErr.Body))
}

func TestFetchEndpoint_TransportError(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})

	failure := errors.New("connection refused")
	transport.RegisterResponder(http.MethodGet, endpointURL(EndpointViews), httpmock.NewErrorResponder(failure))

	_, err := client.FetchEndpoint(context.Background(), EndpointViews)
	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
	assert.Contains(t, err.Error(), "failed to fetch views")
}

func TestDescribeCollection_Fields(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})

	var bodies []string

	transport.RegisterResponder(http.MethodPost, queriesURL, func(req *http.Request) (*http.Response, error) {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}

		bodies = append(bodies, string(data))

		return jsonResponder(http.StatusOK, `{
			"results": [
				{"field": ["_id"], "type": "string", "occurrences": 10},
				{"field": ["address", "city"], "type": "string"},
				{"field": ["tags", "*"], "type": "array"},
				{"field": ["_event_time"], "type": "timestamp"}
			]
		}`)(req)
	})

	fields, err := client.DescribeCollection(context.Background(), "commons", "orders")
	require.NoError(t, err)

	assert.Equal(t, []Field{
		{Name: "_id", Type: "string"},
		{Name: "city", Type: "string"},
		{Name: "*", Type: "array"},
		{Name: "_event_time", Type: "timestamp"},
	}, fields)

	require.Len(t, bodies, 1)
	assert.JSONEq(t, `{"sql":{"query":"DESCRIBE \"commons\".\"orders\""}}`, bodies[0])
}

func TestDescribeCollection_EmptyResults(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})
	transport.RegisterResponder(http.MethodPost, queriesURL, jsonResponder(http.StatusOK, `{"results": []}`))

	fields, err := client.DescribeCollection(context.Background(), "commons", "empty")
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)
}

func TestDescribeCollection_RowWithoutPath(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})
	transport.RegisterResponder(http.MethodPost, queriesURL,
		jsonResponder(http.StatusOK, `{"results": [{"field": [], "type": "string"}]}`))

	_, err := client.DescribeCollection(context.Background(), "commons", "broken")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRocksetAPI))
}

func TestDescribeCollection_UnreadableResponse(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})
	transport.RegisterResponder(http.MethodPost, queriesURL, jsonResponder(http.StatusOK, `not json`))

	_, err := client.DescribeCollection(context.Background(), "commons", "orders")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRocksetAPI))
}

func TestDescribeCollection_Rollup(t *testing.T) {
	var notices []string

	client, transport := newTestClient(t, ClientOptions{
		Verbose: true,
		Notice: func(format string, args ...interface{}) {
			notices = append(notices, fmt.Sprintf(format, args...))
		},
	})

	body := `{"message":"DESCRIBE is not supported on rollup collections: commons.rollup","type":"INVALIDINPUT"}`
	transport.RegisterResponder(http.MethodPost, queriesURL, jsonResponder(http.StatusBadRequest, body))

	fields, err := client.DescribeCollection(context.Background(), "commons", "rollup")
	require.NoError(t, err)
	assert.NotNil(t, fields)
	assert.Empty(t, fields)

	require.Len(t, notices, 1)
	assert.Equal(t, "Error describing commons.rollup: "+body, notices[0])
}

func TestDescribeCollection_RollupQuietWhenNotVerbose(t *testing.T) {
	called := false

	client, transport := newTestClient(t, ClientOptions{
		Notice: func(string, ...interface{}) { called = true },
	})
	transport.RegisterResponder(http.MethodPost, queriesURL,
		jsonResponder(http.StatusBadRequest, `{"message":"`+RollupDescribeMessage+`"}`))

	fields, err := client.DescribeCollection(context.Background(), "commons", "rollup")
	require.NoError(t, err)
	assert.Empty(t, fields)
	assert.False(t, called)
}

func TestDescribeCollection_OtherHTTPErrorsPropagate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{
			name:    "bad request with other message",
			status:  http.StatusBadRequest,
			body:    `{"message":"Collection not found"}`,
			message: "Collection not found",
		},
		{
			name:    "unauthorized is not rewritten",
			status:  http.StatusUnauthorized,
			body:    `{"message":"invalid api key"}`,
			message: "invalid api key",
		},
		{
			name:   "rollup text outside the message key",
			status: http.StatusBadRequest,
			body:   `{"detail":"` + RollupDescribeMessage + `"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, transport := newTestClient(t, ClientOptions{})
			transport.RegisterResponder(http.MethodPost, queriesURL, jsonResponder(tt.status, tt.body))

			fields, err := client.DescribeCollection(context.Background(), "commons", "orders")
			assert.Nil(t, fields)
			require.Error(t, err)
			assert.False(t, apperrors.IsType(err, apperrors.ErrTypeAuth))

			var httpErr *HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.message, httpErr.Message)
			assert.Equal(t, tt.body, string(httpErr.Body))
		})
	}
}

func TestDescribeCollection_TransportErrorPropagates(t *testing.T) {
	client, transport := newTestClient(t, ClientOptions{})

	failure := errors.New("connection reset by peer")
	transport.RegisterResponder(http.MethodPost, queriesURL, httpmock.NewErrorResponder(failure))

	fields, err := client.DescribeCollection(context.Background(), "commons", "orders")
	assert.Nil(t, fields)
	assert.ErrorIs(t, err, failure)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
}

func TestDescribeQueryQuoting(t *testing.T) {
	tests := []struct {
		workspace  string
		collection string
		expected   string
	}{
		{"commons", "orders", `DESCRIBE "commons"."orders"`},
		{"my-ws", "with space", `DESCRIBE "my-ws"."with space"`},
		{"ws", `odd"name`, `DESCRIBE "ws"."odd""name"`},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, DescribeQuery(tt.workspace, tt.collection))
		})
	}
}

func TestDescribeRequestEncodesQuotedIdentifiers(t *testing.T) {
	var payload queryRequest

	client, transport := newTestClient(t, ClientOptions{})
	transport.RegisterResponder(http.MethodPost, queriesURL, func(req *http.Request) (*http.Response, error) {
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			return nil, err
		}

		return jsonResponder(http.StatusOK, `{"results":[]}`)(req)
	})

	_, err := client.DescribeCollection(context.Background(), "ws", `odd"name`)
	require.NoError(t, err)
	assert.Equal(t, `DESCRIBE "ws"."odd""name"`, payload.SQL.Query)
}
