package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/opst/seqmap/pkg/utils"
)

const (
	// file selecting a profile for the directory and its descendants.
	ProfileSelector = ".seqmapprofile"

	DefaultProfile = "default"
)

type CommonFlags struct {
	Profile      string `flag:"profile" help:"name of the profile to use"`
	ProfileStore string `flag:"profile-store" help:"path to the profile store file"`
}

type commonFlagDetection struct {
	home string
}

type CommonFlagDetectionOption func(*commonFlagDetection) *commonFlagDetection

func WithHome(home string) CommonFlagDetectionOption {
	return func(opt *commonFlagDetection) *commonFlagDetection {
		opt.home = home
		return opt
	}
}

// Flags detects default values of CommonFlags.
//
// The profile name is the first line of the nearest .seqmapprofile file,
// searched from the directory `from` to the root. If not found, "default".
//
// The profile store is ~/.seqmap/profile .
func Flags(from string, opt ...CommonFlagDetectionOption) (CommonFlags, error) {
	detparam := commonFlagDetection{}
	for _, o := range opt {
		detparam = *o(&detparam)
	}

	home := detparam.home
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}

	if abs, err := filepath.Abs(from); err == nil {
		from = abs
	}

	profile := DefaultProfile
	if selector, err := utils.SearchFileUpward(from, ProfileSelector); err == nil {
		content, err := os.ReadFile(selector)
		if err != nil {
			return CommonFlags{}, err
		}
		first, _, _ := strings.Cut(string(content), "\n")
		if p := strings.TrimSpace(first); p != "" {
			profile = p
		}
	}

	return CommonFlags{
		Profile:      profile,
		ProfileStore: filepath.Join(home, ".seqmap", "profile"),
	}, nil
}
