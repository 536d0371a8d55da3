package testutil

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/sjson"
)

// CollectionOption adjusts a collection record under construction
type CollectionOption func(record string) string

// WithCollectionField sets an arbitrary key on the record
func WithCollectionField(path string, value interface{}) CollectionOption {
	return func(record string) string {
		updated, err := sjson.Set(record, path, value)
		if err != nil {
			panic(err)
		}

		return updated
	}
}

// WithStatus sets the collection status
func WithStatus(status string) CollectionOption {
	return WithCollectionField("status", status)
}

// WithDescription sets the collection description
func WithDescription(description string) CollectionOption {
	return WithCollectionField("description", description)
}

// WithoutKey removes a key, e.g. to build a malformed record
func WithoutKey(path string) CollectionOption {
	return func(record string) string {
		updated, err := sjson.Delete(record, path)
		if err != nil {
			panic(err)
		}

		return updated
	}
}

// CollectionRecord builds a collection record with the keys Rockset returns
// first, in the order it returns them
func CollectionRecord(workspace, name string, opts ...CollectionOption) string {
	record := `{}`
	record = WithCollectionField("created_at", "2024-01-15T10:00:00Z")(record)
	record = WithCollectionField("name", name)(record)
	record = WithCollectionField("description", "")(record)
	record = WithCollectionField("workspace", workspace)(record)
	record = WithCollectionField("status", "READY")(record)

	for _, opt := range opts {
		record = opt(record)
	}

	return record
}

// DataPayload wraps raw records in a {"data": [...]} document
func DataPayload(records ...string) json.RawMessage {
	return json.RawMessage(`{"data":[` + strings.Join(records, ",") + `]}`)
}

// Collections builds n records named coll-0..coll-n-1 in TestWorkspace
func Collections(n int) []string {
	records := make([]string, 0, n)

	for i := 0; i < n; i++ {
		records = append(records, CollectionRecord(TestWorkspace, "coll-"+strconv.Itoa(i)))
	}

	return records
}
