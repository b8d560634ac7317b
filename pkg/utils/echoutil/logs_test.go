package echoutil_test

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	httptestutil "github.com/opst/seqmap/internal/testutils/http"
	"github.com/opst/seqmap/pkg/utils/echoutil"
)

func TestSetLevel(t *testing.T) {
	for name, expected := range map[string]log.Lvl{
		"debug": log.DEBUG,
		"INFO":  log.INFO,
		"warn":  log.WARN,
		"":      log.WARN,
		"error": log.ERROR,
		"off":   log.OFF,
		"loud":  log.WARN,
	} {
		t.Run("loglevel "+name, func(t *testing.T) {
			e := echo.New()
			e.Logger.SetOutput(new(bytes.Buffer))
			echoutil.SetLevel(e, name)
			if actual := e.Logger.Level(); actual != expected {
				t.Errorf("actual = %v, expected = %v", actual, expected)
			}
		})
	}

	t.Run("unknown level is warned", func(t *testing.T) {
		e := echo.New()
		buf := new(bytes.Buffer)
		e.Logger.SetOutput(buf)
		echoutil.SetLevel(e, "loud")
		if !strings.Contains(buf.String(), "unknown loglevel: loud") {
			t.Errorf("unexpected log: %s", buf.String())
		}
	})
}

func TestLogHandlerFunc(t *testing.T) {
	t.Run("it logs request and response", func(t *testing.T) {
		e := echo.New()
		buf := new(bytes.Buffer)
		e.Logger.SetOutput(buf)
		e.Logger.SetLevel(log.INFO)

		c, resp := httptestutil.Get(e, "/api/jobs")
		handler := echoutil.LogHandlerFunc(func(c echo.Context) error {
			return c.NoContent(http.StatusNoContent)
		})
		if err := handler(c); err != nil {
			t.Fatal(err)
		}

		if resp.Code != http.StatusNoContent {
			t.Errorf("unexpected status: %d", resp.Code)
		}
		logs := buf.String()
		if !strings.Contains(logs, "< request GET /api/jobs") || !strings.Contains(logs, "status = 204") {
			t.Errorf("unexpected logs:\n%s", logs)
		}
	})

	t.Run("it passes errors through", func(t *testing.T) {
		e := echo.New()
		buf := new(bytes.Buffer)
		e.Logger.SetOutput(buf)
		e.Logger.SetLevel(log.INFO)

		expectedErr := errors.New("fake")
		c, _ := httptestutil.Get(e, "/api/jobs")
		err := echoutil.LogHandlerFunc(func(c echo.Context) error { return expectedErr })(c)
		if !errors.Is(err, expectedErr) {
			t.Errorf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "error = fake") {
			t.Errorf("unexpected logs:\n%s", buf.String())
		}
	})
}
