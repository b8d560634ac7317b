package job

import (
	job_show "github.com/opst/seqmap/cmd/seqmap/subcommands/job/show"
	job_watch "github.com/opst/seqmap/cmd/seqmap/subcommands/job/watch"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	show, err := job_show.New()
	if err != nil {
		return nil, err
	}
	watch, err := job_watch.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Inspect analysis jobs.",
		struct{}{},
		flarc.WithSubcommand("show", show),
		flarc.WithSubcommand("watch", watch),
	)
}
