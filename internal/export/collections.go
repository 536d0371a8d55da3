package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	apperrors "github.com/kyleking/rockset-org-metadata/internal/errors"
	"github.com/kyleking/rockset-org-metadata/internal/rockset"
)

// enrichCollections truncates the data array to the limit and sets the
// fields key of every remaining record. Everything else in the document,
// key order included, is left as fetched.
func (e *Exporter) enrichCollections(ctx context.Context, doc []byte, summary *Summary) ([]byte, error) {
	data := gjson.GetBytes(doc, "data")
	if !data.IsArray() {
		return nil, apperrors.New(apperrors.ErrTypeRocksetAPI, "collections response has no data array")
	}

	records := data.Array()
	if e.limit != nil && *e.limit < len(records) {
		records = records[:*e.limit]
	}

	e.progress.StartCollections(len(records))
	defer e.progress.FinishCollections()

	enriched := make([]string, 0, len(records))

	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		updated, err := e.enrichCollection(ctx, i, record, summary)
		if err != nil {
			return nil, err
		}

		enriched = append(enriched, updated)

		e.progress.CollectionDone()
	}

	out, err := sjson.SetRawBytes(doc, "data", []byte("["+strings.Join(enriched, ",")+"]"))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypeInternal, "failed to rewrite collections data")
	}

	return out, nil
}

func (e *Exporter) enrichCollection(ctx context.Context, index int, record gjson.Result, summary *Summary) (string, error) {
	if !record.IsObject() {
		return "", apperrors.Newf(apperrors.ErrTypeRocksetAPI, "collection record %d is not an object", index)
	}

	workspace, err := stringKey(record, index, "workspace")
	if err != nil {
		return "", err
	}

	name, err := stringKey(record, index, "name")
	if err != nil {
		return "", err
	}

	fields, err := e.client.DescribeCollection(ctx, workspace, name)
	if err != nil {
		return "", err
	}

	if fields == nil {
		fields = []rockset.Field{}
	}

	encoded, err := encodeFields(fields)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrTypeInternal, "failed to encode fields")
	}

	updated, err := sjson.SetRaw(record.Raw, "fields", string(encoded))
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.ErrTypeInternal, "failed to set fields on %s.%s", workspace, name)
	}

	if e.catalog != nil {
		if err := e.catalog.StoreCollection(ctx, summary.RunID, workspace, name, fields); err != nil {
			return "", err
		}
	}

	summary.Collections++
	if len(fields) == 0 {
		summary.NoFields++
	}

	e.logger.WithFields(map[string]interface{}{
		"workspace":  workspace,
		"collection": name,
		"fields":     len(fields),
	}).Debug("Collection described")

	return updated, nil
}

func stringKey(record gjson.Result, index int, key string) (string, error) {
	value := record.Get(key)
	if value.Type != gjson.String {
		return "", apperrors.Newf(apperrors.ErrTypeRocksetAPI, "collection record %d has no %s", index, key)
	}

	return value.String(), nil
}

// encodeFields marshals fields without HTML escaping so names such as
// "a<b" are written as received
func encodeFields(fields []rockset.Field) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(fields); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
