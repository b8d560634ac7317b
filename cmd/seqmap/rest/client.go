package rest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	apijobs "github.com/opst/seqmap/pkg/api/types/jobs"
	apiseq "github.com/opst/seqmap/pkg/api/types/sequences"
	"github.com/opst/seqmap/pkg/utils"
)

// Client of the analysis API.
//
// Client is stateless and does not retry. Every non-2xx response fails with *NetworkError.
type Client interface {
	// UploadSequence posts a FASTA content to be embedded.
	//
	// # Args
	//
	// - context.Context
	//
	// - string: file name sent with the content.
	//
	// - io.Reader: FASTA content. It is streamed, not buffered.
	//
	// - string: embedding model name.
	//
	// # Returns
	//
	// - string: job id
	//
	// - error
	UploadSequence(ctx context.Context, filename string, content io.Reader, model string) (string, error)

	// GetJobStatus returns the current status of a job.
	GetJobStatus(ctx context.Context, jobId string) (apijobs.Detail, error)

	// GetUmapProjection returns UMAP coordinates of the sequence uploaded in a job.
	GetUmapProjection(ctx context.Context, jobId string) (apiseq.Projection, error)

	// GetSimilarSequences returns reference sequences similar to the one uploaded in a job.
	GetSimilarSequences(ctx context.Context, jobId string, query apiseq.SimilarQuery) ([]apiseq.Similar, error)

	// GetAllSequences returns the whole reference dataset of a model.
	GetAllSequences(ctx context.Context, model string) ([]apiseq.Record, error)
}

type client struct {
	httpclient *http.Client
	api        string
}

// NewClient creates a client for the analysis API described in the profile.
//
// # Returns
//
// - Client
//
// - error: If given profile is invalid, ErrProfileInvalid is returned.
func NewClient(p *prof.Profile) (Client, error) {
	if err := p.Verify(); err != nil {
		return nil, err
	}
	httpclient := new(http.Client)

	if p.Cert.CA != "" {
		hc, err := trustCa(httpclient, []string{p.Cert.CA})
		if err != nil {
			return nil, err
		}
		httpclient = hc
	}

	return &client{
		httpclient: httpclient,
		api:        strings.TrimSuffix(p.ApiRoot, "/"),
	}, nil
}

// build URL with path
func (c *client) apipath(path ...string) string {
	path = utils.Map(path, func(p string) string {
		return strings.TrimPrefix(strings.TrimSuffix(p, "/"), "/")
	})

	return strings.Join(append([]string{c.api}, path...), "/")
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, &NetworkError{
			Message: fmt.Sprintf("cannot reach the analysis server (%s %s)", req.Method, req.URL.Redacted()),
			Cause:   err,
		}
	}
	return resp, nil
}

func trustCa(hc *http.Client, cacerts []string) (*http.Client, error) {
	if len(cacerts) <= 0 {
		return hc, nil
	}

	if hc.Transport == nil {
		hc.Transport = http.DefaultTransport
	}

	tran, ok := hc.Transport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("failed to add ca cert")
	}
	tran = tran.Clone()

	tcc := tran.TLSClientConfig.Clone()
	if tcc == nil {
		tcc = &tls.Config{}
	}

	rootcas := tcc.RootCAs
	if rootcas == nil {
		rootcas = x509.NewCertPool()
		tcc.RootCAs = rootcas
	}
	for _, ca := range cacerts {
		bin, err := base64.StdEncoding.DecodeString(ca)
		if err != nil {
			return nil, err
		}

		if !rootcas.AppendCertsFromPEM(bin) {
			return nil, fmt.Errorf("failed to add cert")
		}
	}

	tran.TLSClientConfig = tcc
	hc.Transport = tran
	return hc, nil
}
