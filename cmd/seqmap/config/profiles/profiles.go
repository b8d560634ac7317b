package profiles

import (
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hectane/go-acl"
	"github.com/opst/seqmap/cmd/seqmap/config/open"
	"github.com/opst/seqmap/pkg/api/types/sequences"
	"github.com/opst/seqmap/pkg/backoff"
	"github.com/opst/seqmap/pkg/export"
	"github.com/opst/seqmap/pkg/export/s3"
	"github.com/opst/seqmap/pkg/export/stores"
	"github.com/opst/seqmap/pkg/similarity"
	yaml "gopkg.in/yaml.v3"
)

var ErrProfileStoreNotFound = errors.New("profile store is not found")
var ErrCannotCreateConfig = errors.New("cannot create profile store")
var ErrCannotUpdateConfig = errors.New("cannot update profile store")
var ErrProfileInvalid = errors.New("seqmap profile is invalid")

const (
	SimilarityServer = "server"
	SimilarityLocal  = "local"

	ExportFS = export.DriverFS
	ExportS3 = export.DriverS3

	DefaultSimilarityLimit = 10
)

// ProfileStore is a map from profile name to Profile.
type ProfileStore map[string]*Profile

type Cert struct {
	// base64 encoded CA certificate
	CA string `yaml:"ca,omitempty"`
}

type Polling struct {
	InitialInterval time.Duration `yaml:"initialInterval,omitempty"`
	BackoffFactor   float64       `yaml:"backoffFactor,omitempty"`
	MaxInterval     time.Duration `yaml:"maxInterval,omitempty"`

	// 0 means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// timeout of each status check. 0 means no timeout.
	CheckTimeout time.Duration `yaml:"checkTimeout,omitempty"`
}

// Policy returns the polling interval policy. Zero fields are filled with defaults.
func (p Polling) Policy() backoff.Capped {
	d := backoff.Default()
	if p.InitialInterval != 0 {
		d.Initial = p.InitialInterval
		if p.MaxInterval == 0 && d.Max < d.Initial {
			d.Max = d.Initial
		}
	}
	if p.BackoffFactor != 0 {
		d.Factor = p.BackoffFactor
	}
	if p.MaxInterval != 0 {
		d.Max = p.MaxInterval
	}
	return d
}

type Similarity struct {
	// "server" (default) or "local"
	Mode string `yaml:"mode,omitempty"`

	// 0 means the default (10).
	Limit         int     `yaml:"limit,omitempty"`
	MinSimilarity float64 `yaml:"minSimilarity,omitempty"`

	// 0 means no limit.
	MaxYear int `yaml:"maxYear,omitempty"`

	// nil means true.
	IncludeUnknownDates *bool `yaml:"includeUnknownDates,omitempty"`
}

func (s Similarity) ModeOrDefault() string {
	if s.Mode == "" {
		return SimilarityServer
	}
	return s.Mode
}

func (s Similarity) limit() int {
	if s.Limit == 0 {
		return DefaultSimilarityLimit
	}
	return s.Limit
}

func (s Similarity) includeUnknownDates() bool {
	return s.IncludeUnknownDates == nil || *s.IncludeUnknownDates
}

// Query for the similarity endpoint of the analysis server.
func (s Similarity) Query() sequences.SimilarQuery {
	return sequences.SimilarQuery{
		NResults:            s.limit(),
		MinDistance:         s.MinSimilarity,
		MaxYear:             s.MaxYear,
		IncludeUnknownDates: s.includeUnknownDates(),
	}
}

// Options for local similarity search.
func (s Similarity) Options() similarity.Options {
	return similarity.Options{
		Limit:               s.limit(),
		MinSimilarity:       s.MinSimilarity,
		MaxYear:             s.MaxYear,
		IncludeUnknownDates: s.includeUnknownDates(),
	}
}

type Hooks struct {
	// URLs to be notified with status changes of jobs.
	StatusChange []string `yaml:"statusChange,omitempty"`
}

type Export struct {
	// "fs", "s3" or empty (export disabled)
	Driver string `yaml:"driver,omitempty"`

	// for fs
	Dir string `yaml:"dir,omitempty"`

	// for s3
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"pathStyle,omitempty"`
}

func (e Export) Enabled() bool {
	return e.Driver != ""
}

// Config for stores.Open.
func (e Export) Config() stores.Config {
	return stores.Config{
		Driver: e.Driver,
		Dir:    e.Dir,
		S3: s3.Config{
			Bucket:    e.Bucket,
			Prefix:    e.Prefix,
			Region:    e.Region,
			Endpoint:  e.Endpoint,
			PathStyle: e.PathStyle,
		},
	}
}

// Profile is a profile for an analysis server.
type Profile struct {
	// endpoint of the analysis API
	ApiRoot string `yaml:"apiRoot"`

	Cert Cert `yaml:"cert,omitempty"`

	// embedding model name used for uploads and the reference dataset.
	EmbeddingModel string `yaml:"embeddingModel,omitempty"`

	Polling    Polling    `yaml:"polling,omitempty"`
	Similarity Similarity `yaml:"similarity,omitempty"`
	Hooks      Hooks      `yaml:"hooks,omitempty"`
	Export     Export     `yaml:"export,omitempty"`
}

func verifyUrl(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

func verifyPEM(b64cert string) bool {
	bin, err := base64.StdEncoding.DecodeString(b64cert)
	if err != nil {
		return false
	}
	blk, _ := pem.Decode(bin)
	return blk != nil
}

// Verify Profile
//
// # Return
//
// nil if it is valid. Otherwise, ErrProfileInvalid error.
func (p *Profile) Verify() error {
	if !verifyUrl(p.ApiRoot) {
		return fmt.Errorf("%w: apiRoot is not URL: %s", ErrProfileInvalid, p.ApiRoot)
	}
	if p.Cert.CA != "" && !verifyPEM(p.Cert.CA) {
		return fmt.Errorf("%w: cert.ca is not PEM", ErrProfileInvalid)
	}

	if err := p.Polling.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: polling: %w", ErrProfileInvalid, err)
	}
	if p.Polling.Timeout < 0 {
		return fmt.Errorf("%w: polling.timeout should not be negative", ErrProfileInvalid)
	}
	if p.Polling.CheckTimeout < 0 {
		return fmt.Errorf("%w: polling.checkTimeout should not be negative", ErrProfileInvalid)
	}

	switch p.Similarity.ModeOrDefault() {
	case SimilarityServer, SimilarityLocal:
	default:
		return fmt.Errorf(
			"%w: similarity.mode should be %s or %s: %s",
			ErrProfileInvalid, SimilarityServer, SimilarityLocal, p.Similarity.Mode,
		)
	}
	if p.Similarity.Limit < 0 {
		return fmt.Errorf("%w: similarity.limit should be positive", ErrProfileInvalid)
	}
	if m := p.Similarity.MinSimilarity; m < 0 || 1 < m {
		return fmt.Errorf("%w: similarity.minSimilarity should be in [0, 1]: %g", ErrProfileInvalid, m)
	}
	if p.Similarity.MaxYear < 0 {
		return fmt.Errorf("%w: similarity.maxYear should not be negative", ErrProfileInvalid)
	}

	for _, h := range p.Hooks.StatusChange {
		if !verifyUrl(h) {
			return fmt.Errorf("%w: hooks.statusChange has non URL: %s", ErrProfileInvalid, h)
		}
	}

	switch p.Export.Driver {
	case "", ExportFS:
	case ExportS3:
		if p.Export.Bucket == "" {
			return fmt.Errorf("%w: export.bucket is required for s3", ErrProfileInvalid)
		}
		if p.Export.Endpoint != "" && !verifyUrl(p.Export.Endpoint) {
			return fmt.Errorf("%w: export.endpoint is not URL: %s", ErrProfileInvalid, p.Export.Endpoint)
		}
	default:
		return fmt.Errorf(
			"%w: export.driver should be %s or %s: %s",
			ErrProfileInvalid, ExportFS, ExportS3, p.Export.Driver,
		)
	}

	return nil
}

// LoadProfileStore loads profile store from file.
func LoadProfileStore(filepath string) (ProfileStore, error) {
	buf, err := os.ReadFile(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s: %w", ErrProfileStoreNotFound, filepath, err)
		}
		return nil, err
	}
	return Unmarshall(buf)
}

// Unmarshall profile store from yaml in byte array.
func Unmarshall(buf []byte) (ProfileStore, error) {
	ret := map[string]*Profile{}
	if err := yaml.Unmarshal(buf, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// UnmarshallProfile reads a single profile from yaml.
func UnmarshallProfile(buf []byte) (*Profile, error) {
	ret := new(Profile)
	if err := yaml.Unmarshal(buf, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Save profile store to file.
//
// The file is readable and writable only by the owner.
// Previous content is kept in "<path>.backup" while writing, and restored on failure.
func (ps *ProfileStore) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.FileMode(0700)); err != nil {
		return err
	}

	buf, err := yaml.Marshal(ps)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR, os.FileMode(0600))
	switch {
	case err == nil:
		// existing file may have loose permission.
		if err := acl.Chmod(path, os.FileMode(0600)); err != nil {
			f.Close()
			return err
		}
	case os.IsPermission(err):
		return fmt.Errorf("%w, because no permission to write file at %s", ErrCannotUpdateConfig, path)
	case os.IsNotExist(err):
		created, err := open.NewSafeFile(path)
		if err != nil {
			return fmt.Errorf("%w: at %s: %w", ErrCannotCreateConfig, path, err)
		}
		f = created
	default:
		return err
	}
	defer f.Close()

	bkpath := path + ".backup"
	previous, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	if err := open.WriteSafeFile(bkpath, previous); err != nil {
		return err
	}

	if err := overwrite(f, buf); err != nil {
		if rerr := overwrite(f, previous); rerr != nil {
			return fmt.Errorf("%w (backup is left at %s): %w", ErrCannotUpdateConfig, bkpath, errors.Join(err, rerr))
		}
		os.Remove(bkpath)
		return fmt.Errorf("%w: %w", ErrCannotUpdateConfig, err)
	}
	return os.Remove(bkpath)
}

func overwrite(f *os.File, content []byte) error {
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Write(content)
	return err
}
