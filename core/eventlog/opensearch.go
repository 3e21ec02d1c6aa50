package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// OpenSearchWriter indexes events into daily indices named
// <prefix>-YYYY.MM.DD.
type OpenSearchWriter struct {
	client *opensearch.Client
	prefix string
}

// NewOpenSearchWriter creates a writer using index prefix.
func NewOpenSearchWriter(client *opensearch.Client, prefix string) *OpenSearchWriter {
	return &OpenSearchWriter{client: client, prefix: prefix}
}

// Index returns the index name for e.
func (w *OpenSearchWriter) Index(e Event) string {
	return w.prefix + "-" + e.Timestamp.UTC().Format("2006.01.02")
}

func (w *OpenSearchWriter) Write(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}

	req := opensearchapi.IndexRequest{
		Index:      w.Index(e),
		DocumentID: e.ID.String(),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, w.client)
	if err != nil {
		return errors.Join(ErrWriteFailed, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.IsError() {
		return errors.Join(ErrWriteFailed, fmt.Errorf("opensearch: %s", res.Status()))
	}
	return nil
}
