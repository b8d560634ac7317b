package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	cerr "github.com/opst/seqmap/cmd/seqmap/errors"
	apierr "github.com/opst/seqmap/pkg/api/types/errors"
)

// NetworkError is an error of communication with the analysis server.
//
// It is either a non-2xx response (StatusCode != 0), or a failure
// to reach the server at all (StatusCode == 0).
type NetworkError struct {
	// status code of the response. 0 if there is no response.
	StatusCode int

	// response body, as is.
	Body string

	// short message for people.
	Message string

	Cause error
}

func (e *NetworkError) Error() string {
	lines := []string{e.Message}
	if e.StatusCode != 0 {
		lines[0] = fmt.Sprintf("%s (status code = %d)", e.Message, e.StatusCode)
	}
	if detail := parseErrorMessage(e.Body); detail != "" {
		lines = append(lines, detail)
	}
	return strings.Join(lines, "\n")
}

func (e *NetworkError) Verbose() string {
	if e.Cause == nil {
		return e.Error()
	}
	return e.Error() + "\ncaused by: " + cerr.VerboseOf(e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

type MessageFor map[StatusCodeRange]string

func errorResponse(resp *http.Response, messageFor MessageFor) *NetworkError {
	scr := StatusCodeRangeOf(resp)
	message, ok := messageFor[scr]
	if !ok {
		message = scr.String()
	}

	body, err := io.ReadAll(resp.Body)
	return &NetworkError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Message:    message,
		Cause:      err,
	}
}

// unmarshal http response which has json content.
//
// args:
//   - resp: http response to be processed.
//   - v: value which response should be.
//   - messageFor: title of error message for HTTP status code range.
//
// return:
//
//	error if...
//	- status code is not 2xx (*NetworkError)
//	- response body is not shaped of v
func unmarshalJsonResponse[T any](resp *http.Response, v *T, messageFor MessageFor) error {
	if StatusCodeRangeOf(resp) != Status2xx {
		return errorResponse(resp, messageFor)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		message := fmt.Sprintf("unexpected response: %s (status code = %d)", err.Error(), resp.StatusCode)
		return cerr.NewCuiError(message, cerr.WithCause(err))
	}
	return nil
}

// parseErrorMessage makes error response from the server human readable.
func parseErrorMessage(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	em := new(apierr.ErrorMessage)
	if err := json.Unmarshal([]byte(body), em); err == nil {
		return em.String()
	}

	// FastAPI style: {"detail": "..."} or {"detail": [...]}
	detail := new(struct {
		Detail json.RawMessage `json:"detail"`
		Error  *string         `json:"error"`
	})
	if err := json.Unmarshal([]byte(body), detail); err == nil {
		if detail.Error != nil {
			return *detail.Error
		}
		if len(detail.Detail) != 0 {
			var s string
			if err := json.Unmarshal(detail.Detail, &s); err == nil {
				return s
			}
			return string(detail.Detail)
		}
	}

	return body
}
