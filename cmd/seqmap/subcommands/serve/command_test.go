package serve_test

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	"github.com/opst/seqmap/cmd/seqmap/config/profiles/testutils"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/common"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/internal/commandline"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/logger"
	"github.com/opst/seqmap/cmd/seqmap/subcommands/serve"
	"github.com/opst/seqmap/pkg/utils/try"
)

func TestServe(t *testing.T) {
	profile := &prof.Profile{ApiRoot: "http://api.seqmap.invalid/api", EmbeddingModel: "dnabert"}

	type When struct {
		// stop the server after it becomes ready.
		stop func(t *testing.T, cancel func(), store string)
	}

	theory := func(when When) func(*testing.T) {
		return func(t *testing.T) {
			store := try.To(testutils.TempProfile(t, "test", profile)).OrFatal(t)
			l := try.To(net.Listen("tcp", "127.0.0.1:0")).OrFatal(t)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			testee := serve.Task(serve.WithListener(l))
			done := make(chan error, 1)
			go func() {
				done <- testee(
					ctx,
					logger.Null(),
					common.CommonFlags{Profile: "test", ProfileStore: store},
					commandline.MockCommandline[serve.Flags]{
						Fullname_: "seqmap serve",
						Stdout_:   new(strings.Builder),
						Stderr_:   new(strings.Builder),
						Flags_:    serve.Flags{Loglevel: "off"},
					},
					[]any{},
				)
			}()

			url := "http://" + l.Addr().String() + "/api/jobs"
			ready := false
			for range 100 {
				resp, err := http.Get(url)
				if err == nil {
					resp.Body.Close()
					if resp.StatusCode != http.StatusOK {
						t.Fatalf("unexpected status: %d", resp.StatusCode)
					}
					ready = true
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			if !ready {
				t.Fatal("server is not ready")
			}

			when.stop(t, cancel, store)

			select {
			case err := <-done:
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("server does not stop")
			}
		}
	}

	t.Run("it stops when the context is done", theory(When{
		stop: func(t *testing.T, cancel func(), store string) {
			cancel()
		},
	}))

	t.Run("it stops when the profile store is updated", theory(When{
		stop: func(t *testing.T, cancel func(), store string) {
			if err := os.WriteFile(store, []byte("{}\n"), 0600); err != nil {
				t.Fatal(err)
			}
		},
	}))

	t.Run("without profile store, it fails", func(t *testing.T) {
		testee := serve.Task()
		err := testee(
			context.Background(),
			logger.Null(),
			common.CommonFlags{Profile: "test", ProfileStore: filepath.Join(t.TempDir(), "nope")},
			commandline.MockCommandline[serve.Flags]{
				Fullname_: "seqmap serve",
				Stderr_:   new(strings.Builder),
				Flags_:    serve.Flags{Port: 0, Loglevel: "off"},
			},
			[]any{},
		)
		if err == nil {
			t.Error("no error")
		}
	})
}
