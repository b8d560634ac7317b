package common

import (
	"context"
	"errors"
	"fmt"
	"log"

	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	cuierr "github.com/opst/seqmap/cmd/seqmap/errors"
	"github.com/opst/seqmap/cmd/seqmap/rest"
	"github.com/youta-t/flarc"
)

type TaskWithCommonFlag[T any] func(
	ctx context.Context,
	logger *log.Logger,
	commonFlag CommonFlags,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTaskWithCommonFlag adapts a task taking CommonFlags into flarc.Task.
//
// CommonFlags are picked from positional parameters, and the others are passed through.
func NewTaskWithCommonFlag[T any](task TaskWithCommonFlag[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var commonFlag CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				commonFlag = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		logger := log.New(cl.Stderr(), "", log.LstdFlags)
		logger.SetPrefix(fmt.Sprintf("[%s] ", cl.Fullname()))

		return task(ctx, logger, commonFlag, cl, newpos)
	}
}

type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	profile *prof.Profile,
	client rest.Client,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTask adapts a task taking the selected profile and its client into flarc.Task.
func NewTask[T any](task Task[T]) flarc.Task[T] {
	return NewTaskWithCommonFlag(func(
		ctx context.Context,
		logger *log.Logger,
		commonFlag CommonFlags,
		cl flarc.Commandline[T],
		params []any,
	) error {
		profile, client, err := LoadProfile(commonFlag)
		if err != nil {
			return err
		}
		return task(ctx, logger, profile, client, cl, params)
	})
}

// LoadProfile reads the profile selected by commonFlag, and creates a client for it.
func LoadProfile(commonFlag CommonFlags) (*prof.Profile, rest.Client, error) {
	store, err := prof.LoadProfileStore(commonFlag.ProfileStore)
	if err != nil {
		if errors.Is(err, prof.ErrProfileStoreNotFound) {
			return nil, nil, cuierr.NewCuiError(
				fmt.Sprintf("profile store (%s) is not found", commonFlag.ProfileStore),
				cuierr.WithHint("Please try `seqmap init` first."),
				cuierr.WithCause(err),
			)
		}
		return nil, nil, cuierr.NewCuiError(
			fmt.Sprintf("failed to load profile store (%s)", commonFlag.ProfileStore),
			cuierr.WithCause(err),
		)
	}

	profile, ok := store[commonFlag.Profile]
	if !ok {
		return nil, nil, cuierr.NewCuiError(
			fmt.Sprintf(
				"profile '%s' not found in the profile store (%s)",
				commonFlag.Profile, commonFlag.ProfileStore,
			),
			cuierr.WithHint("Check --profile, or register it with `seqmap init`."),
		)
	}

	client, err := rest.NewClient(profile)
	if err != nil {
		return nil, nil, cuierr.NewCuiError(
			fmt.Sprintf(
				"failed to create a client. Your profile (%s in %s) can be broken",
				commonFlag.Profile, commonFlag.ProfileStore,
			),
			cuierr.WithHint("Remove it and try `seqmap init` again."),
			cuierr.WithCause(err),
		)
	}
	return profile, client, nil
}
