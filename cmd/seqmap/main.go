package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"

	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	subinit "github.com/opst/seqmap/cmd/seqmap/subcommands/init"
	subjob "github.com/opst/seqmap/cmd/seqmap/subcommands/job"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/logger"
	subref "github.com/opst/seqmap/cmd/seqmap/subcommands/reference"
	subseq "github.com/opst/seqmap/cmd/seqmap/subcommands/sequence"
	subserve "github.com/opst/seqmap/cmd/seqmap/subcommands/serve"
	subver "github.com/opst/seqmap/cmd/seqmap/subcommands/version"
	"github.com/opst/seqmap/pkg/utils/try"
	"github.com/youta-t/flarc"
)

func main() {
	name := path.Base(os.Args[0])
	logger := logger.Default()
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := try.To(common.Flags(".")).OrFatal(logger)
	init := try.To(subinit.New()).OrFatal(logger)
	sequence := try.To(subseq.New()).OrFatal(logger)
	job := try.To(subjob.New()).OrFatal(logger)
	reference := try.To(subref.New()).OrFatal(logger)
	serve := try.To(subserve.New()).OrFatal(logger)
	version := try.To(subver.New()).OrFatal(logger)

	seqmap := try.To(
		flarc.NewCommandGroup(
			"seqmap: map your sequences over the reference dataset",
			cf,
			flarc.WithSubcommand("init", init),
			flarc.WithSubcommand("sequence", sequence),
			flarc.WithSubcommand("job", job),
			flarc.WithSubcommand("reference", reference),
			flarc.WithSubcommand("serve", serve),
			flarc.WithSubcommand("version", version),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, seqmap, flarc.WithHelp(true)))
}
