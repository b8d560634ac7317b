// Package report follows a job from CLI commands, and prints its plot.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/opst/seqmap/cmd/seqmap/app"
	cuierr "github.com/opst/seqmap/cmd/seqmap/errors"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/export/stores"
	"github.com/opst/seqmap/pkg/tracker"
	"github.com/opst/seqmap/pkg/visualize"
)

// Follow waits the job to finish, and writes its plot to out as JSON.
//
// When exportKey is not empty, the plot is also put into the export store of the profile.
func Follow(
	ctx context.Context,
	logger *log.Logger,
	a *app.App,
	out io.Writer,
	jobId string,
	exportKey string,
) error {
	var store visualize.Adapter
	if exportKey != "" {
		// fail before waiting long.
		s, err := a.ExportStore(ctx)
		if errors.Is(err, stores.ErrDisabled) {
			return cuierr.NewCuiError(
				"--export is given, but export is not configured",
				cuierr.WithHint("Set export.driver in your profile, or drop --export."),
				cuierr.WithCause(err),
			)
		} else if err != nil {
			return cuierr.NewCuiError("failed to open export store", cuierr.WithCause(err))
		}
		store = exported{logger: logger, exporter: visualize.Exporter{Store: s, Key: exportKey}}
	}

	logger.Printf("waiting job %s...", jobId)
	plot, err := a.Follow(ctx, jobId)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrJobFailed):
		return cuierr.NewCuiError(fmt.Sprintf("job %s has failed", jobId), cuierr.WithCause(err))
	case errors.Is(err, tracker.ErrPollingTimeout):
		return cuierr.NewCuiError(
			fmt.Sprintf("job %s did not finish in time", jobId),
			cuierr.WithHint(fmt.Sprintf("It may be still running. Try `seqmap job watch %s` later.", jobId)),
			cuierr.WithCause(err),
		)
	default:
		return err
	}
	similar := 0
	for _, p := range plot.Scatter {
		if p.Role == visualize.RoleSimilar {
			similar += 1
		}
	}
	logger.Printf(
		"job %s is completed: %d similar sequence(s) plotted, %d unresolved",
		jobId, similar, len(plot.Unresolved),
	)

	adapters := visualize.Multi{visualize.JSON{W: out, Indent: "    "}}
	if store != nil {
		adapters = append(adapters, store)
	}
	return adapters.Render(ctx, plot)
}

type exported struct {
	logger   *log.Logger
	exporter visualize.Exporter
}

func (e exported) Render(ctx context.Context, plot visualize.Plot) error {
	info, err := e.exporter.Export(ctx, plot)
	if err != nil {
		return cuierr.NewCuiError("failed to export the plot", cuierr.WithCause(err))
	}
	e.logger.Printf("exported: %s (%d bytes)", info.Location, info.Size)
	return nil
}
