package watch

import (
	"context"
	"log"

	"github.com/opst/seqmap/cmd/seqmap/app"
	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	cuierr "github.com/opst/seqmap/cmd/seqmap/errors"
	"github.com/opst/seqmap/cmd/seqmap/rest"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/internal/report"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Model  string `flag:"model" alias:"m" metavar:"MODEL" help:"embedding model the job was uploaded with. Default is embeddingModel of the profile."`
	Export string `flag:"export" metavar:"KEY" help:"put the plot into the export store of the profile, as KEY."`
}

const ARG_JOBID = "JOB_ID"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Wait a job to finish, and print its plot.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_JOBID, Required: true,
				Help: "Id of the job to be watched",
			},
		},
		common.NewTask(Task),
		flarc.WithDescription(`
Poll the status of a job uploaded before (for example, with "seqmap sequence upload --no-wait"),
until it is completed or failed.

When it is completed, the plot of the sequence over the reference dataset is printed as JSON.
When it is failed, this command exits with non-zero status.
`),
	)
}

func Task(
	ctx context.Context,
	logger *log.Logger,
	profile *prof.Profile,
	client rest.Client,
	cl flarc.Commandline[Flags],
	params []any,
) error {
	jobId := cl.Args()[ARG_JOBID][0]

	a, err := app.New(profile, client, app.WithLogger(logger))
	if err != nil {
		return cuierr.NewCuiError(
			"your profile can not be used",
			cuierr.WithHint("Check it, and register it again with `seqmap init`."),
			cuierr.WithCause(err),
		)
	}
	a.Tracker.Track(jobId, cl.Flags().Model)

	return report.Follow(ctx, logger, a, cl.Stdout(), jobId, cl.Flags().Export)
}
