package serve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/opst/seqmap/cmd/seqmap/app"
	"github.com/opst/seqmap/cmd/seqmap/server"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	"github.com/opst/seqmap/pkg/utils/filewatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Port     int    `flag:"port" alias:"p" metavar:"PORT" help:"port to listen"`
	Loglevel string `flag:"loglevel" metavar:"LEVEL" help:"log level of the server. debug|info|warn|error|off"`
}

type Option struct {
	listener        net.Listener
	shutdownTimeout time.Duration
}

// WithListener makes the server accept on l, instead of --port.
func WithListener(l net.Listener) func(*Option) *Option {
	return func(o *Option) *Option {
		o.listener = l
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	return flarc.NewCommand(
		"Start the dashboard backend.",
		Flags{Port: 8080, Loglevel: "info"},
		flarc.Args{},
		common.NewTaskWithCommonFlag(Task(options...)),
		flarc.WithDescription(`
Start an HTTP server which uploads sequences, tracks their jobs and
serves plots, for the dashboard.

APIs:

- POST   /api/sequences              upload a FASTA file (multipart field "file", optional "model")
- GET    /api/jobs                   list tracked jobs
- GET    /api/jobs/:jobId            a tracked job
- DELETE /api/jobs/:jobId            stop tracking a job
- GET    /api/jobs/:jobId/result     plot of a completed job
- POST   /api/jobs/:jobId/export     export the plot (?key=...)
- GET    /api/references             reference points (?refresh=true to fetch again)
- GET    /api/references/:accession  look up a reference sequence
- GET    /metrics                    prometheus metrics

The server stops when it is interrupted, or the profile store is updated.
`),
	)
}

func Task(options ...func(*Option) *Option) common.TaskWithCommonFlag[Flags] {
	option := &Option{shutdownTimeout: 15 * time.Second}
	for _, opt := range options {
		option = opt(option)
	}

	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[Flags],
		params []any,
	) error {
		flags := cl.Flags()

		profile, client, err := common.LoadProfile(cf)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		if err := reg.Register(collectors.NewGoCollector()); err != nil {
			return err
		}
		a, err := app.New(profile, client, app.WithLogger(logger), app.WithRegisterer(reg))
		if err != nil {
			return err
		}

		ctx, cancel, err := filewatch.UntilModifyContext(ctx, cf.ProfileStore)
		if err != nil {
			return fmt.Errorf("can not watch profile store: %w", err)
		}
		defer cancel()

		e := server.New(ctx, a, reg, flags.Loglevel)
		if option.listener != nil {
			e.Listener = option.listener
		}

		stop := context.AfterFunc(ctx, func() {
			logger.Printf("shutting down: %s", context.Cause(ctx))
			graceful, cancel := context.WithTimeout(context.Background(), option.shutdownTimeout)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				logger.Printf("error on shutdown: %s", err)
			}
		})
		defer stop()

		if ctx.Err() != nil {
			return nil
		}
		logger.Printf("profile %s (%s, model: %s)", cf.Profile, profile.ApiRoot, profile.EmbeddingModel)
		if err := e.Start(fmt.Sprintf(":%d", flags.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
