package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/opst/seqmap/cmd/seqmap/app"
	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	cuierr "github.com/opst/seqmap/cmd/seqmap/errors"
	"github.com/opst/seqmap/cmd/seqmap/rest"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/internal/report"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/fasta"
	"github.com/opst/seqmap/pkg/tracker"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Model  string `flag:"model" alias:"m" metavar:"MODEL" help:"embedding model. Default is embeddingModel of the profile."`
	NoWait bool   `flag:"no-wait" help:"print the job id and exit without waiting the job."`
	Export string `flag:"export" metavar:"KEY" help:"put the plot into the export store of the profile, as KEY."`
}

const ARG_FASTA = "FASTA"

type Option struct {
	progressOut io.Writer
}

// WithProgressOut changes where the progress bar is written. Default is stderr.
func WithProgressOut(w io.Writer) func(*Option) *Option {
	return func(o *Option) *Option {
		o.progressOut = w
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{}
	for _, opt := range options {
		option = opt(option)
	}

	return flarc.NewCommand(
		"Upload a FASTA file, and wait its analysis.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_FASTA, Required: true,
				Help: fmt.Sprintf("FASTA file to be analysed. Its extension should be one of %v", fasta.Extensions()),
			},
		},
		common.NewTask(Task(option.progressOut)),
		flarc.WithDescription(`
Upload a FASTA file to the analysis API, and track the created job.

When the job is completed, the plot of your sequence over the reference
dataset is printed as JSON. It contains the scatter points (references,
similar sequences and yours), similar sequences not found in the dataset,
and counts per country.

With --no-wait, the job id is printed and the command exits at once.
Use "seqmap job watch JOB_ID" to follow it later.
`),
	)
}

// Task uploads a sequence.
//
// progressOut is where the progress bar is written. If nil, the stderr of the command line.
func Task(progressOut io.Writer) common.Task[Flags] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		profile *prof.Profile,
		client rest.Client,
		cl flarc.Commandline[Flags],
		params []any,
	) error {
		flags := cl.Flags()
		source := cl.Args()[ARG_FASTA][0]
		progress := progressOut
		if progress == nil {
			progress = cl.Stderr()
		}

		a, err := app.New(profile, client, app.WithLogger(logger))
		if err != nil {
			return cuierr.NewCuiError(
				"your profile can not be used",
				cuierr.WithHint("Check it, and register it again with `seqmap init`."),
				cuierr.WithCause(err),
			)
		}

		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("%w: %w", flarc.ErrUsage, err)
		}
		defer f.Close()

		model := flags.Model
		if model == "" {
			model = profile.EmbeddingModel
		}

		var bar *pb.ProgressBar
		logger.Printf("sending... %s (model: %s)", source, model)
		jobId, err := a.Tracker.Submit(ctx, tracker.Upload{
			Name:  filepath.Base(source),
			Body:  f,
			Model: model,
			Monitor: func(content io.Reader, size int64) io.Reader {
				bar = pb.New64(size)
				bar.Set(pb.Bytes, true)
				bar.SetWriter(progress)
				bar.Start()
				return bar.NewProxyReader(content)
			},
		})
		if bar != nil {
			bar.Finish()
		}
		if err != nil {
			if errors.Is(err, domain.ErrUpload) {
				return cuierr.NewCuiError(
					fmt.Sprintf("%s is not accepted", source),
					cuierr.WithCause(err),
				)
			}
			return err
		}
		logger.Printf("uploaded: %s -> job %s", source, jobId)

		if flags.NoWait {
			_, err := fmt.Fprintln(cl.Stdout(), jobId)
			return err
		}
		return report.Follow(ctx, logger, a, cl.Stdout(), jobId, flags.Export)
	}
}
