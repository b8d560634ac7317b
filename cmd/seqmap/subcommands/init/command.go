package init

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	"github.com/youta-t/flarc"
)

const ARG_PROFILE_FILE = "PROFILE_FILE"

type Option struct {
	// directory where .seqmapprofile is written.
	dir string
}

// WithDir changes the directory to be initialized. Default is the working directory.
func WithDir(dir string) func(*Option) *Option {
	return func(o *Option) *Option {
		o.dir = dir
		return o
	}
}

func New(options ...func(*Option) *Option) (flarc.Command, error) {
	option := &Option{dir: "."}
	for _, opt := range options {
		option = opt(option)
	}

	return flarc.NewCommand(
		"Initialize this directory as a seqmap project.",
		struct{}{},
		flarc.Args{
			{
				Name: ARG_PROFILE_FILE, Required: true,
				Help: "filepath to a seqmap profile, which describes the analysis API to use.",
			},
		},
		common.NewTaskWithCommonFlag(Task(option.dir)),
		flarc.WithDescription(`
Register a profile into your profile store, and select it for this directory.

"profile" is a yaml file which tells where the analysis API is,
the embedding model to use and how jobs are polled.

The name of the profile is given by "--profile" (default: "default").
The selected name is written in ".seqmapprofile", and commands run
in this directory or its descendants use the profile.
`),
	)
}

func Task(dir string) common.TaskWithCommonFlag[struct{}] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		cf common.CommonFlags,
		cl flarc.Commandline[struct{}],
		params []any,
	) error {
		profFile := cl.Args()[ARG_PROFILE_FILE][0]

		profStore, err := prof.LoadProfileStore(cf.ProfileStore)
		if errors.Is(err, prof.ErrProfileStoreNotFound) {
			// ok.
			profStore = prof.ProfileStore{}
		} else if err != nil {
			return fmt.Errorf("failed to load profile store (%s): %w", cf.ProfileStore, err)
		}

		content, err := os.ReadFile(profFile)
		if err != nil {
			return fmt.Errorf("failed to read profile file (%s): %w", profFile, err)
		}
		newProf, err := prof.UnmarshallProfile(content)
		if err != nil {
			return fmt.Errorf("failed to parse profile file (%s): %w", profFile, err)
		}
		if err := newProf.Verify(); err != nil {
			return fmt.Errorf("%s: %w", profFile, err)
		}

		profStore[cf.Profile] = newProf
		if err := profStore.Save(cf.ProfileStore); err != nil {
			return fmt.Errorf("failed to save profile store (%s): %w", cf.ProfileStore, err)
		}
		logger.Printf("profile %s is saved to %s", cf.Profile, cf.ProfileStore)

		selector := filepath.Join(dir, common.ProfileSelector)
		f, err := os.OpenFile(selector, os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.FileMode(0600))
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", selector, err)
		}
		defer f.Close()
		if _, err := f.Write([]byte(cf.Profile)); err != nil {
			return fmt.Errorf("failed to write %s: %w", selector, err)
		}
		return nil
	}
}
