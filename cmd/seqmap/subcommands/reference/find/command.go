package find

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	cuierr "github.com/opst/seqmap/cmd/seqmap/errors"
	"github.com/opst/seqmap/cmd/seqmap/rest"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/seqcache"
	"github.com/youta-t/flarc"
)

type Flags struct {
	Model string `flag:"model" alias:"m" metavar:"MODEL" help:"embedding model of the dataset. Default is embeddingModel of the profile."`
}

const ARG_ACCESSION = "ACCESSION"

func New() (flarc.Command, error) {
	return flarc.NewCommand(
		"Find reference sequences by accession.",
		Flags{},
		flarc.Args{
			{
				Name: ARG_ACCESSION, Required: true, Repeatable: true,
				Help: "accession to be looked up, like NC_045512.2",
			},
		},
		common.NewTask(Task),
		flarc.WithDescription(`
Look up reference sequences by accession, and print them as JSON, one per line.

Accessions are matched loosely, in the following order:

- exact
- case-insensitive
- version-stripped (".1", ".2", ... are ignored)
- containment (for prefixed records, like "NZ_...")

Each line tells which of them has matched, as "strategy".
Accessions not found are reported in stderr, and then this command exits with non-zero status.
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
	cache := seqcache.New(client, model)
	refs, err := cache.Load(ctx, false)
	if err != nil {
		return err
	}
	logger.Printf("%d reference sequences are loaded (model: %s)", len(refs), model)

	enc := json.NewEncoder(cl.Stdout())
	missing := []string{}
	for _, q := range cl.Args()[ARG_ACCESSION] {
		found, err := cache.Lookup(q)
		if errors.Is(err, domain.ErrNotFound) {
			logger.Printf("not found: %s", q)
			missing = append(missing, q)
			continue
		} else if err != nil {
			return err
		}
		if err := enc.Encode(found); err != nil {
			return err
		}
	}

	if len(missing) != 0 {
		return cuierr.NewCuiError(
			fmt.Sprintf("%d accession(s) are not found: %v", len(missing), missing),
			cuierr.WithCause(domain.ErrNotFound),
		)
	}
	return nil
}
