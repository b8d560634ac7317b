package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/opst/seqmap/pkg/export"
	"github.com/opst/seqmap/pkg/export/fs"
	"github.com/opst/seqmap/pkg/export/s3"
)

var (
	ErrDisabled      = errors.New("export is not configured")
	ErrUnknownDriver = errors.New("unknown export driver")
)

type Config struct {
	// export.DriverFS, export.DriverS3 or empty (disabled)
	Driver string

	// for fs. Default is the working directory.
	Dir string

	// for s3
	S3 s3.Config
}

// Open creates a Store for the driver.
//
// # Errors
//
// - ErrDisabled: Driver is empty.
//
// - ErrUnknownDriver
//
// - others: the driver can not be set up.
func Open(ctx context.Context, cfg Config) (export.Store, error) {
	switch cfg.Driver {
	case "":
		return nil, ErrDisabled
	case export.DriverFS:
		dir := cfg.Dir
		if dir == "" {
			dir = "."
		}
		return fs.New(dir), nil
	case export.DriverS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}
