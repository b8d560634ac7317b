package rest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	cerr "github.com/opst/seqmap/cmd/seqmap/errors"
	apijobs "github.com/opst/seqmap/pkg/api/types/jobs"
	apiseq "github.com/opst/seqmap/pkg/api/types/sequences"
)

// max size of a line in the reference dataset. Lines with embeddings can be long.
const maxRecordSize = 64 * 1024 * 1024

func (c *client) UploadSequence(ctx context.Context, filename string, content io.Reader, model string) (string, error) {
	r, w := io.Pipe()
	mw := multipart.NewWriter(w)

	go func() {
		err := func() error {
			if model != "" {
				if err := mw.WriteField("model_name", model); err != nil {
					return err
				}
			}
			part, err := mw.CreateFormFile("file", filename)
			if err != nil {
				return err
			}
			if _, err := io.Copy(part, content); err != nil {
				return err
			}
			return mw.Close()
		}()
		w.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apipath("sequence", "embed"), r)
	if err != nil {
		r.CloseWithError(err)
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		r.CloseWithError(err)
		return "", err
	}
	defer resp.Body.Close()

	created := apijobs.Created{}
	if err := unmarshalJsonResponse(
		resp, &created,
		MessageFor{
			Status4xx: "the analysis server rejected the sequence",
			Status5xx: "server-side error while uploading the sequence",
		},
	); err != nil {
		return "", err
	}
	if created.JobId == "" {
		return "", cerr.NewCuiError("unexpected response: job_id is missing")
	}
	return created.JobId, nil
}

func (c *client) GetJobStatus(ctx context.Context, jobId string) (apijobs.Detail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apipath("jobs", url.PathEscape(jobId)), nil)
	if err != nil {
		return apijobs.Detail{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return apijobs.Detail{}, err
	}
	defer resp.Body.Close()

	detail := apijobs.Detail{}
	if err := unmarshalJsonResponse(
		resp, &detail,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot get the job (job id: %s)", jobId),
			Status5xx: "server-side error while checking the job",
		},
	); err != nil {
		return apijobs.Detail{}, err
	}
	return detail, nil
}

func (c *client) GetUmapProjection(ctx context.Context, jobId string) (apiseq.Projection, error) {
	u := c.apipath("sequence", "umap") + "?" + url.Values{"job_id": {jobId}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return apiseq.Projection{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return apiseq.Projection{}, err
	}
	defer resp.Body.Close()

	proj := apiseq.Projection{}
	if err := unmarshalJsonResponse(
		resp, &proj,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot get UMAP projection (job id: %s)", jobId),
			Status5xx: "server-side error while projecting the sequence",
		},
	); err != nil {
		return apiseq.Projection{}, err
	}
	return proj, nil
}

func (c *client) GetSimilarSequences(ctx context.Context, jobId string, query apiseq.SimilarQuery) ([]apiseq.Similar, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	u := c.apipath("sequence", "similar") + "?" + url.Values{"job_id": {jobId}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	similar := []apiseq.Similar{}
	if err := unmarshalJsonResponse(
		resp, &similar,
		MessageFor{
			Status4xx: fmt.Sprintf("cannot get similar sequences (job id: %s)", jobId),
			Status5xx: "server-side error while searching similar sequences",
		},
	); err != nil {
		return nil, err
	}
	return similar, nil
}

func (c *client) GetAllSequences(ctx context.Context, model string) ([]apiseq.Record, error) {
	q := url.Values{"reduced": {"true"}}
	if model != "" {
		q.Set("embedding_model", model)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apipath("umap", "all")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if StatusCodeRangeOf(resp) != Status2xx {
		return nil, errorResponse(resp, MessageFor{
			Status4xx: fmt.Sprintf("cannot get reference sequences (model: %s)", model),
			Status5xx: "server-side error while listing reference sequences",
		})
	}

	return DecodeRecords(resp.Body)
}

// DecodeRecords reads NDJSON of reference sequences.
//
// Blank lines are skipped. A malformed line fails with its line number.
func DecodeRecords(r io.Reader) ([]apiseq.Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	ret := []apiseq.Record{}
	lineno := 0
	for scanner.Scan() {
		lineno += 1
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec := apiseq.Record{}
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, cerr.NewCuiError(
				fmt.Sprintf("malformed reference sequence at line %d: %s", lineno, err.Error()),
				cerr.WithCause(err),
			)
		}
		ret = append(ret, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, cerr.NewCuiError(
			fmt.Sprintf("cannot read reference sequences after line %d: %s", lineno, err.Error()),
			cerr.WithCause(err),
		)
	}
	return ret, nil
}
