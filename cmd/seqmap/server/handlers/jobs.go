package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	apierr "github.com/opst/seqmap/pkg/api/types/errors"
	apijobs "github.com/opst/seqmap/pkg/api/types/jobs"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/export"
	"github.com/opst/seqmap/pkg/export/stores"
	"github.com/opst/seqmap/pkg/fasta"
	"github.com/opst/seqmap/pkg/tracker"
	"github.com/opst/seqmap/pkg/visualize"
)

// JobTracker is the part of *tracker.Tracker handlers use.
type JobTracker interface {
	Submit(ctx context.Context, upload tracker.Upload) (string, error)
	StartPolling(ctx context.Context, jobId string) error
	Dismiss(jobId string) error
	Job(jobId string) (domain.AnalysisJob, error)
	Polling(jobId string) bool
	Jobs() []domain.AnalysisJob
	Result(jobId string) (domain.UserSequenceResult, error)
}

// Plotter builds a plot from a result.
type Plotter interface {
	Plot(ctx context.Context, result domain.UserSequenceResult) (visualize.Plot, error)
}

// PostSequenceHandler accepts a FASTA file as multipart field "file", and starts tracking its job.
//
// Jobs are polled in base, not in the request context, to outlive the request.
// Field "model" overrides defaultModel.
func PostSequenceHandler(base context.Context, t JobTracker, defaultModel string) echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return apierr.BadRequest(`multipart field "file" is required`, err)
		}
		model := c.FormValue("model")
		if model == "" {
			model = defaultModel
		}

		f, err := fh.Open()
		if err != nil {
			return apierr.InternalServerError(err)
		}
		defer f.Close()

		jobId, err := t.Submit(c.Request().Context(), tracker.Upload{
			Name: fh.Filename, Body: f, Model: model,
		})
		if errors.Is(err, domain.ErrUpload) {
			return apierr.BadRequest(
				fmt.Sprintf("upload a FASTA file (%s)", strings.Join(fasta.Extensions(), ", ")),
				err,
			)
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		if err := t.StartPolling(base, jobId); err != nil {
			return apierr.InternalServerError(err)
		}
		c.Logger().Infof("job %s is created from %s (model: %s)", jobId, fh.Filename, model)

		return c.JSON(http.StatusCreated, apijobs.Created{JobId: jobId})
	}
}

func GetJobsHandler(t JobTracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobs := t.Jobs()
		resp := make([]apijobs.Summary, 0, len(jobs))
		for _, j := range jobs {
			resp = append(resp, apijobs.ComposeSummary(j, t.Polling(j.JobId)))
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func GetJobHandler(t JobTracker, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobId := c.Param(param)
		job, err := t.Job(jobId)
		if errors.Is(err, domain.ErrUnknownJob) {
			return apierr.NotFound(apierr.WithJob(jobId))
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.JSON(http.StatusOK, apijobs.ComposeSummary(job, t.Polling(jobId)))
	}
}

// DeleteJobHandler stops polling the job and forgets it.
func DeleteJobHandler(t JobTracker, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobId := c.Param(param)
		if err := t.Dismiss(jobId); errors.Is(err, domain.ErrUnknownJob) {
			return apierr.NotFound(apierr.WithJob(jobId))
		} else if err != nil {
			return apierr.InternalServerError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func GetResultHandler(t JobTracker, p Plotter, param string) echo.HandlerFunc {
	return func(c echo.Context) error {
		plot, err := plotOf(c.Request().Context(), t, p, c.Param(param))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, plot)
	}
}

// PostExportHandler puts the plot of the job into the export store.
//
// Query "key" names the object. Default is "<job id>.json".
func PostExportHandler(
	t JobTracker,
	p Plotter,
	open func(context.Context) (export.Store, error),
	param string,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		store, err := open(ctx)
		if errors.Is(err, stores.ErrDisabled) {
			return apierr.ServiceUnavailable("export is not configured in the profile", err)
		} else if err != nil {
			return apierr.InternalServerError(err)
		}

		jobId := c.Param(param)
		plot, err := plotOf(ctx, t, p, jobId)
		if err != nil {
			return err
		}

		info, err := visualize.Exporter{Store: store, Key: c.QueryParam("key")}.Export(ctx, plot)
		if errors.Is(err, export.ErrInvalidKey) {
			return apierr.BadRequest(`"key" should be a relative path without ".."`, err)
		} else if err != nil {
			return apierr.NewErrorMessage(
				http.StatusBadGateway, "export failed",
				apierr.WithJob(jobId), apierr.WithError(err),
			)
		}
		return c.JSON(http.StatusCreated, info)
	}
}

// plotOf returns the plot of the job, or an *echo.HTTPError.
func plotOf(ctx context.Context, t JobTracker, p Plotter, jobId string) (visualize.Plot, error) {
	result, err := t.Result(jobId)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnknownJob):
		return visualize.Plot{}, apierr.NotFound(apierr.WithJob(jobId))
	case errors.Is(err, domain.ErrJobFailed):
		return visualize.Plot{}, apierr.Conflict(
			"job has failed", apierr.WithJob(jobId), apierr.WithError(err),
		)
	case errors.Is(err, domain.ErrIncompleteJob):
		return visualize.Plot{}, apierr.Conflict(
			"job is not completed yet",
			apierr.WithJob(jobId), apierr.WithAdvice("retry later"), apierr.WithError(err),
		)
	default:
		return visualize.Plot{}, apierr.BadGateway(err, apierr.WithJob(jobId))
	}

	plot, err := p.Plot(ctx, result)
	if errors.Is(err, domain.ErrFetch) {
		return visualize.Plot{}, apierr.BadGateway(err, apierr.WithJob(jobId))
	} else if err != nil {
		return visualize.Plot{}, apierr.InternalServerError(err)
	}
	return plot, nil
}
