package sequence

import (
	sequence_upload "github.com/opst/seqmap/cmd/seqmap/subcommands/sequence/upload"
	"github.com/youta-t/flarc"
)

func New() (flarc.Command, error) {
	upload, err := sequence_upload.New()
	if err != nil {
		return nil, err
	}

	return flarc.NewCommandGroup(
		"Upload your sequences and map them over the reference dataset.",
		struct{}{},
		flarc.WithSubcommand("upload", upload),
	)
}
