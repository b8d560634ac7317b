package reference

import (
	reference_dump "github.com/opst/seqmap/cmd/seqmap/subcommands/reference/dump"
	reference_find "github.com/opst/seqmap/cmd/seqmap/subcommands/reference/find"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	find, err := reference_find.New()
	if err != nil {
		return nil, err
	}
	dump, err := reference_dump.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Look up the reference dataset.",
		struct{}{},
		flarc.WithSubcommand("find", find),
		flarc.WithSubcommand("dump", dump),
	)
}
