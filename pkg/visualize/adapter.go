package visualize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/opst/seqmap/pkg/export"
)

// Adapter hands a Plot to something which draws it.
type Adapter interface {
	Render(ctx context.Context, plot Plot) error
}

// JSON writes a Plot as one JSON document.
type JSON struct {
	W      io.Writer
	Indent string
}

func (j JSON) Render(ctx context.Context, plot Plot) error {
	enc := json.NewEncoder(j.W)
	if j.Indent != "" {
		enc.SetIndent("", j.Indent)
	}
	return enc.Encode(plot)
}

// JSONL writes scatter points of a Plot, one JSON object per line.
type JSONL struct {
	W io.Writer
}

func (j JSONL) Render(ctx context.Context, plot Plot) error {
	return WritePoints(j.W, plot.Scatter)
}

// WritePoints writes points as NDJSON.
func WritePoints(w io.Writer, points []Point) error {
	enc := json.NewEncoder(w)
	for _, p := range points {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

// Exporter puts a Plot as JSON into an export store.
type Exporter struct {
	Store export.Store

	// Key of the object. If empty, "<job id>.json" is used.
	Key string
}

func (e Exporter) Render(ctx context.Context, plot Plot) error {
	_, err := e.Export(ctx, plot)
	return err
}

// Export stores the plot and returns where it is stored.
func (e Exporter) Export(ctx context.Context, plot Plot) (export.Info, error) {
	key := e.Key
	if key == "" {
		if plot.JobId == "" {
			return export.Info{}, fmt.Errorf("%w: no key for a plot without job id", export.ErrInvalidKey)
		}
		key = plot.JobId + ".json"
	}

	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(plot); err != nil {
		return export.Info{}, err
	}
	return e.Store.Put(ctx, key, buf, "application/json")
}

// Multi renders a Plot with all adapters in order, and stops at the first error.
type Multi []Adapter

func (m Multi) Render(ctx context.Context, plot Plot) error {
	for _, a := range m {
		if err := a.Render(ctx, plot); err != nil {
			return err
		}
	}
	return nil
}
