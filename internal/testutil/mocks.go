package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kyleking/rockset-org-metadata/internal/rockset"
)

// MockRocksetClient implements rockset.Client for testing with error injection
type MockRocksetClient struct {
	mu sync.Mutex

	responses map[rockset.Endpoint]json.RawMessage
	fetchErrs map[rockset.Endpoint]error
	schemas   map[string][]rockset.Field
	describe  map[string]error

	fetchCalls    []rockset.Endpoint
	describeCalls []string
}

// MockOption is a functional option for configuring MockRocksetClient
type MockOption func(*MockRocksetClient)

// WithResponse sets the raw document returned for an endpoint
func WithResponse(endpoint rockset.Endpoint, doc json.RawMessage) MockOption {
	return func(m *MockRocksetClient) {
		m.responses[endpoint] = doc
	}
}

// WithFetchError makes fetching an endpoint fail
func WithFetchError(endpoint rockset.Endpoint, err error) MockOption {
	return func(m *MockRocksetClient) {
		m.fetchErrs[endpoint] = err
	}
}

// WithSchema sets the fields returned for workspace.collection
func WithSchema(workspace, collection string, fields ...rockset.Field) MockOption {
	return func(m *MockRocksetClient) {
		m.schemas[workspace+"."+collection] = fields
	}
}

// WithDescribeError makes DESCRIBE of workspace.collection fail
func WithDescribeError(workspace, collection string, err error) MockOption {
	return func(m *MockRocksetClient) {
		m.describe[workspace+"."+collection] = err
	}
}

// NewMockRocksetClient creates a mock client; endpoints without a configured
// response return an empty data array and collections without a schema
// describe to no fields, as rollups do
func NewMockRocksetClient(opts ...MockOption) *MockRocksetClient {
	mock := &MockRocksetClient{
		responses: make(map[rockset.Endpoint]json.RawMessage),
		fetchErrs: make(map[rockset.Endpoint]error),
		schemas:   make(map[string][]rockset.Field),
		describe:  make(map[string]error),
	}

	for _, opt := range opts {
		opt(mock)
	}

	return mock
}

// FetchEndpoint returns the configured document or error
func (m *MockRocksetClient) FetchEndpoint(ctx context.Context, endpoint rockset.Endpoint) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchCalls = append(m.fetchCalls, endpoint)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err, ok := m.fetchErrs[endpoint]; ok {
		return nil, err
	}

	if doc, ok := m.responses[endpoint]; ok {
		return doc, nil
	}

	return json.RawMessage(`{"data":[]}`), nil
}

// DescribeCollection returns the configured schema or error
func (m *MockRocksetClient) DescribeCollection(_ context.Context, workspace, collection string) ([]rockset.Field, error) {
	key := workspace + "." + collection

	m.mu.Lock()
	defer m.mu.Unlock()

	m.describeCalls = append(m.describeCalls, key)

	if err, ok := m.describe[key]; ok {
		return nil, err
	}

	if fields, ok := m.schemas[key]; ok {
		return fields, nil
	}

	return []rockset.Field{}, nil
}

// FetchCalls returns the endpoints fetched, in order
func (m *MockRocksetClient) FetchCalls() []rockset.Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]rockset.Endpoint(nil), m.fetchCalls...)
}

// DescribeCalls returns the workspace.collection names described, in order
func (m *MockRocksetClient) DescribeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.describeCalls...)
}
