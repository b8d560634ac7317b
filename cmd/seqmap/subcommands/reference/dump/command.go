package dump

import (
	"context"
	"log"

	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	"github.com/opst/seqmap/cmd/seqmap/rest"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	"github.com/opst/seqmap/pkg/seqcache"
	"github.com/opst/seqmap/pkg/visualize"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Model string `flag:"model" alias:"m" metavar:"MODEL" help:"embedding model of the dataset. Default is embeddingModel of the profile."`
}

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Print the reference dataset as scatter points.",
		Flags{},
		flarc.Args{},
		common.NewTask(Task),
		flarc.WithDescription(`
Fetch the reference dataset, and print its points as JSON, one per line.

Each line has "accession", "x", "y", "country" and "date".
Missing country and date are "Unknown".
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
	model := cl.Flags().Model
	if model == "" {
		model = profile.EmbeddingModel
	}

	refs, err := seqcache.New(client, model).Load(ctx, false)
	if err != nil {
		return err
	}
	logger.Printf("%d reference sequences (model: %s)", len(refs), model)
	return visualize.WritePoints(cl.Stdout(), visualize.References(refs))
}
