package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opst/seqmap/cmd/seqmap/app"
	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	"github.com/opst/seqmap/cmd/seqmap/rest/mock"
	"github.com/opst/seqmap/cmd/seqmap/server"
	httptestutil "github.com/opst/seqmap/internal/testutils/http"
	apierr "github.com/opst/seqmap/pkg/api/types/errors"
	apijobs "github.com/opst/seqmap/pkg/api/types/jobs"
	apiseq "github.com/opst/seqmap/pkg/api/types/sequences"
	"github.com/opst/seqmap/pkg/export"
	"github.com/opst/seqmap/pkg/utils/try"
	"github.com/opst/seqmap/pkg/visualize"
	"github.com/prometheus/client_golang/prometheus"
)

const content = ">seq1\nACGTACGT\n"

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	client *mock.MockClient
	app    *app.App
	reg    *prometheus.Registry
	ctx    context.Context
}

// setup builds a server over a mock client, whose jobs turn into status.
func setup(t *testing.T, export prof.Export, status apijobs.Detail) (fixture, func(method, target string, body io.Reader, opts ...httptestutil.RequestOption) *http.Response) {
	t.Helper()

	client := mock.New(t)
	mu := new(sync.Mutex)
	uploaded := 0
	client.Impl.UploadSequence = func(ctx context.Context, filename string, content io.Reader, model string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		uploaded += 1
		return "job-" + string(rune('0'+uploaded)), nil
	}
	client.Impl.GetJobStatus = func(ctx context.Context, jobId string) (apijobs.Detail, error) {
		return status, nil
	}
	client.Impl.GetUmapProjection = func(ctx context.Context, jobId string) (apiseq.Projection, error) {
		return apiseq.Projection{X: 7, Y: 8}, nil
	}
	client.Impl.GetSimilarSequences = func(ctx context.Context, jobId string, query apiseq.SimilarQuery) ([]apiseq.Similar, error) {
		return []apiseq.Similar{
			{Accession: "AB1", Similarity: ptr(0.9)},
			{Accession: "ZZ9", Similarity: ptr(0.4)},
		}, nil
	}
	client.Impl.GetAllSequences = func(ctx context.Context, model string) ([]apiseq.Record, error) {
		return []apiseq.Record{
			{SequenceHash: "h-1", Accession: "AB1.1", Coordinates: apiseq.Coordinates{X: 1, Y: 2}, FirstCountry: "Japan", FirstDate: "2019"},
			{SequenceHash: "h-2", Accession: "CD2.1", Coordinates: apiseq.Coordinates{X: 3, Y: 4}},
		}, nil
	}

	profile := &prof.Profile{
		ApiRoot:        "http://api.seqmap.invalid/api",
		EmbeddingModel: "dnabert",
		Polling: prof.Polling{
			InitialInterval: time.Millisecond, BackoffFactor: 1, MaxInterval: time.Millisecond,
		},
		Export: export,
	}

	reg := prometheus.NewRegistry()
	a := try.To(app.New(profile, client, app.WithRegisterer(reg))).OrFatal(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	e := server.New(ctx, a, reg, "off")
	serve := func(method, target string, body io.Reader, opts ...httptestutil.RequestOption) *http.Response {
		return httptestutil.Serve(e, method, target, body, opts...).Result()
	}
	return fixture{client: client, app: a, reg: reg, ctx: ctx}, serve
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func upload(t *testing.T, serve func(string, string, io.Reader, ...httptestutil.RequestOption) *http.Response, filename string) *http.Response {
	t.Helper()
	body, ctyp := httptestutil.Multipart(
		map[string]string{},
		httptestutil.File{Field: "file", Filename: filename, Content: content},
	)
	return serve(http.MethodPost, "/api/sequences", body, ctyp)
}

func TestJobs(t *testing.T) {
	t.Run("a job goes through upload, result, export and delete", func(t *testing.T) {
		exportDir := t.TempDir()
		f, serve := setup(
			t,
			prof.Export{Driver: prof.ExportFS, Dir: exportDir},
			apijobs.Detail{Status: "completed", EmbeddingId: "emb-1"},
		)

		resp := upload(t, serve, "sample.fasta")
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		created := decode[apijobs.Created](t, resp)
		if created.JobId != "job-1" {
			t.Fatalf("unexpected job: %+v", created)
		}
		if up := f.client.Calls.UploadSequence; len(up) != 1 || up[0].Model != "dnabert" || string(up[0].Content) != content {
			t.Errorf("unexpected upload: %+v", up)
		}

		try.To(f.app.Tracker.Wait(f.ctx, "job-1")).OrFatal(t)

		{
			resp := serve(http.MethodGet, "/api/jobs/job-1", nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("unexpected status: %d", resp.StatusCode)
			}
			job := decode[apijobs.Summary](t, resp)
			if job.JobId != "job-1" || job.Status != "completed" || job.Polling || job.EmbeddingId != "emb-1" {
				t.Errorf("unexpected job: %+v", job)
			}
		}
		{
			resp := serve(http.MethodGet, "/api/jobs", nil)
			jobs := decode[[]apijobs.Summary](t, resp)
			if len(jobs) != 1 || jobs[0].JobId != "job-1" {
				t.Errorf("unexpected jobs: %+v", jobs)
			}
		}
		{
			// a trailing slash is ignored.
			resp := serve(http.MethodGet, "/api/jobs/job-1/result/", nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("unexpected status: %d", resp.StatusCode)
			}
			plot := decode[visualize.Plot](t, resp)
			if plot.JobId != "job-1" {
				t.Errorf("unexpected plot: %+v", plot)
			}
			if len(plot.Unresolved) != 1 || plot.Unresolved[0].Accession != "ZZ9" {
				t.Errorf("unexpected unresolved: %+v", plot.Unresolved)
			}
			user := plot.Scatter[len(plot.Scatter)-1]
			if user.Role != visualize.RoleUser || user.X != 7 || user.Y != 8 {
				t.Errorf("unexpected user point: %+v", user)
			}
		}
		{
			resp := serve(http.MethodPost, "/api/jobs/job-1/export?key=plots/one.json", nil)
			if resp.StatusCode != http.StatusCreated {
				t.Fatalf("unexpected status: %d", resp.StatusCode)
			}
			info := decode[export.Info](t, resp)
			if info.Driver != export.DriverFS || info.Key != "plots/one.json" {
				t.Errorf("unexpected info: %+v", info)
			}
			buf := try.To(os.ReadFile(filepath.Join(exportDir, "plots", "one.json"))).OrFatal(t)
			if !strings.Contains(string(buf), `"job_id":"job-1"`) {
				t.Errorf("unexpected export: %s", buf)
			}
		}
		{
			resp := serve(http.MethodPost, "/api/jobs/job-1/export?key=../escape.json", nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("unexpected status: %d", resp.StatusCode)
			}
		}
		{
			resp := serve(http.MethodDelete, "/api/jobs/job-1", nil)
			if resp.StatusCode != http.StatusNoContent {
				t.Errorf("unexpected status: %d", resp.StatusCode)
			}
			if resp := serve(http.MethodGet, "/api/jobs/job-1", nil); resp.StatusCode != http.StatusNotFound {
				t.Errorf("unexpected status: %d", resp.StatusCode)
			}
		}
	})

	t.Run("a file which is not FASTA is rejected", func(t *testing.T) {
		f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed"})

		resp := upload(t, serve, "sample.txt")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		msg := decode[apierr.ErrorMessage](t, resp)
		if msg.Reason != "bad request" || !strings.Contains(msg.Advice, ".fasta") {
			t.Errorf("unexpected message: %+v", msg)
		}
		if len(f.client.Calls.UploadSequence) != 0 {
			t.Errorf("uploaded: %+v", f.client.Calls.UploadSequence)
		}
		if jobs := f.app.Tracker.Jobs(); len(jobs) != 0 {
			t.Errorf("job is created: %+v", jobs)
		}
	})

	t.Run("a request without file is rejected", func(t *testing.T) {
		_, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed"})

		body, ctyp := httptestutil.Multipart(map[string]string{"model": "dnabert"})
		resp := serve(http.MethodPost, "/api/sequences", body, ctyp)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
	})

	t.Run("field model overrides the profile", func(t *testing.T) {
		f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "embedding"})

		body, ctyp := httptestutil.Multipart(
			map[string]string{"model": "hyenadna"},
			httptestutil.File{Field: "file", Filename: "sample.fa", Content: content},
		)
		resp := serve(http.MethodPost, "/api/sequences", body, ctyp)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		if up := f.client.Calls.UploadSequence; len(up) != 1 || up[0].Model != "hyenadna" {
			t.Errorf("unexpected upload: %+v", up)
		}
	})

	t.Run("a job of another model is plotted over the dataset of that model", func(t *testing.T) {
		f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed", EmbeddingId: "emb-1"})
		f.client.Impl.GetAllSequences = func(ctx context.Context, model string) ([]apiseq.Record, error) {
			if model != "hyenadna" {
				return []apiseq.Record{{SequenceHash: "h-1", Accession: "AB1.1"}}, nil
			}
			return []apiseq.Record{
				{SequenceHash: "h-9", Accession: "AB1.1", Coordinates: apiseq.Coordinates{X: 50, Y: 60}, FirstCountry: "Peru"},
			}, nil
		}

		body, ctyp := httptestutil.Multipart(
			map[string]string{"model": "hyenadna"},
			httptestutil.File{Field: "file", Filename: "sample.fa", Content: content},
		)
		if resp := serve(http.MethodPost, "/api/sequences", body, ctyp); resp.StatusCode != http.StatusCreated {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		try.To(f.app.Tracker.Wait(f.ctx, "job-1")).OrFatal(t)

		job := decode[apijobs.Summary](t, serve(http.MethodGet, "/api/jobs/job-1", nil))
		if job.Model != "hyenadna" {
			t.Errorf("unexpected job: %+v", job)
		}

		resp := serve(http.MethodGet, "/api/jobs/job-1/result", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		plot := decode[visualize.Plot](t, resp)
		similar := []visualize.Point{}
		for _, p := range plot.Scatter {
			if p.Role == visualize.RoleSimilar {
				similar = append(similar, p)
			}
		}
		if len(similar) != 1 || similar[0].X != 50 || similar[0].Country != "Peru" {
			t.Errorf("unexpected similar points: %+v", similar)
		}
		for _, m := range f.client.Calls.GetAllSequences {
			if m != "hyenadna" {
				t.Errorf("dataset of %s is fetched", m)
			}
		}
	})

	t.Run("result of a running job is conflict", func(t *testing.T) {
		f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "embedding"})
		f.app.Tracker.Track("job-x", "")

		resp := serve(http.MethodGet, "/api/jobs/job-x/result", nil)
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		msg := decode[apierr.ErrorMessage](t, resp)
		if msg.JobId != "job-x" {
			t.Errorf("unexpected message: %+v", msg)
		}
	})

	t.Run("result of a failed job is conflict", func(t *testing.T) {
		f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "failed", Error: "out of memory"})

		resp := upload(t, serve, "sample.fasta")
		jobId := decode[apijobs.Created](t, resp).JobId
		try.To(f.app.Tracker.Wait(f.ctx, jobId)).OrFatal(t)

		resp = serve(http.MethodGet, "/api/jobs/"+jobId+"/result", nil)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
		job := decode[apijobs.Summary](t, serve(http.MethodGet, "/api/jobs/"+jobId, nil))
		if job.Status != "failed" || job.Error != "out of memory" {
			t.Errorf("unexpected job: %+v", job)
		}
	})

	t.Run("when export is not configured, export is unavailable", func(t *testing.T) {
		f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed", EmbeddingId: "emb-1"})

		jobId := decode[apijobs.Created](t, upload(t, serve, "sample.fasta")).JobId
		try.To(f.app.Tracker.Wait(f.ctx, jobId)).OrFatal(t)

		resp := serve(http.MethodPost, "/api/jobs/"+jobId+"/export", nil)
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
	})

	t.Run("unknown jobs are not found", func(t *testing.T) {
		_, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed"})

		for _, req := range []struct{ method, target string }{
			{http.MethodGet, "/api/jobs/nope"},
			{http.MethodDelete, "/api/jobs/nope"},
			{http.MethodGet, "/api/jobs/nope/result"},
		} {
			if resp := serve(req.method, req.target, nil); resp.StatusCode != http.StatusNotFound {
				t.Errorf("%s %s: unexpected status: %d", req.method, req.target, resp.StatusCode)
			}
		}
	})
}

func TestReferences(t *testing.T) {
	t.Run("it responds reference points, and refetches on refresh", func(t *testing.T) {
		f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed"})

		for _, target := range []string{"/api/references", "/api/references", "/api/references?refresh=true"} {
			resp := serve(http.MethodGet, target, nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("%s: unexpected status: %d", target, resp.StatusCode)
			}
			points := decode[[]visualize.Point](t, resp)
			if len(points) != 2 || points[0].Accession != "AB1.1" || points[1].Country != "Unknown" {
				t.Errorf("unexpected points: %+v", points)
			}
		}
		if calls := f.client.Calls.GetAllSequences; len(calls) != 2 {
			t.Errorf("unexpected fetches: %v", calls)
		}
	})

	t.Run("refresh should be boolean", func(t *testing.T) {
		_, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed"})
		if resp := serve(http.MethodGet, "/api/references?refresh=maybe", nil); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
	})

	t.Run("it looks up a reference by accession", func(t *testing.T) {
		_, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed"})

		resp := serve(http.MethodGet, "/api/references/ab1.1", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		found := decode[apiseq.Lookup](t, resp)
		if found.Accession != "AB1.1" || found.Strategy != "case-insensitive" || found.Country != "Japan" {
			t.Errorf("unexpected lookup: %+v", found)
		}

		if resp := serve(http.MethodGet, "/api/references/ZZ999", nil); resp.StatusCode != http.StatusNotFound {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
	})

	t.Run("when the dataset can not be fetched, it is bad gateway", func(t *testing.T) {
		f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed"})
		f.client.Impl.GetAllSequences = func(ctx context.Context, model string) ([]apiseq.Record, error) {
			return nil, errors.New("fake error")
		}

		if resp := serve(http.MethodGet, "/api/references", nil); resp.StatusCode != http.StatusBadGateway {
			t.Errorf("unexpected status: %d", resp.StatusCode)
		}
	})
}

func TestMetrics(t *testing.T) {
	f, serve := setup(t, prof.Export{}, apijobs.Detail{Status: "completed", EmbeddingId: "emb-1"})

	jobId := decode[apijobs.Created](t, upload(t, serve, "sample.fasta")).JobId
	try.To(f.app.Tracker.Wait(f.ctx, jobId)).OrFatal(t)

	resp := serve(http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	defer resp.Body.Close()
	body := string(try.To(io.ReadAll(resp.Body)).OrFatal(t))
	for _, want := range []string{
		`seqmap_tracker_polls_total{outcome="ok"} 1`,
		`seqmap_tracker_finished_jobs_total{status="completed"} 1`,
		`seqmap_tracker_active_jobs 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("%s is missing in\n%s", want, body)
		}
	}
}
