// Package server builds the dashboard backend of `seqmap serve`.
package server

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/opst/seqmap/cmd/seqmap/app"
	"github.com/opst/seqmap/cmd/seqmap/server/handlers"
	"github.com/opst/seqmap/pkg/utils/echoutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New creates an echo server serving the app.
//
// Jobs uploaded via the server are polled in ctx.
// Metrics gathered from gatherer are exposed at /metrics.
func New(ctx context.Context, a *app.App, gatherer prometheus.Gatherer, loglevel string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())

	echoutil.SetLevel(e, loglevel)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	api := func(p string) string {
		return "/api/" + p
	}

	{
		jobId := "jobId"
		e.POST(api("sequences"), handlers.PostSequenceHandler(ctx, a.Tracker, a.Profile.EmbeddingModel))
		e.GET(api("jobs"), handlers.GetJobsHandler(a.Tracker))
		e.GET(api("jobs/:jobId"), handlers.GetJobHandler(a.Tracker, jobId))
		e.DELETE(api("jobs/:jobId"), handlers.DeleteJobHandler(a.Tracker, jobId))
		e.GET(api("jobs/:jobId/result"), handlers.GetResultHandler(a.Tracker, a, jobId))
		e.POST(api("jobs/:jobId/export"), handlers.PostExportHandler(a.Tracker, a, a.ExportStore, jobId))
	}

	{
		acc := "accession"
		e.GET(api("references"), handlers.GetReferencesHandler(a.Cache))
		e.GET(api("references/:accession"), handlers.GetReferenceHandler(a.Cache, acc))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	for _, r := range e.Routes() {
		e.Logger.Debugf("route: %s %s", r.Method, r.Path)
	}
	return e
}
