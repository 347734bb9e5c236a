package api

import (
	"encoding/json"
	"net/http"

	"boscoin.io/pollwatch/lib/errors"
)

// Problem is a "problem detail" response body (RFC 7807).
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Code uint                   `json:"code,omitempty"`
	Data map[string]interface{} `json:"data,omitempty"`
}

func NewStatusProblem(status int) Problem {
	return Problem{Type: "about:blank", Title: http.StatusText(status), Status: status}
}

func NewDetailedStatusProblem(status int, detail string) Problem {
	p := NewStatusProblem(status)
	p.Detail = detail
	return p
}

// NewErrorProblem keeps the code and data of an `*errors.Error`.
func NewErrorProblem(err error, status int) Problem {
	p := NewStatusProblem(status)
	if e, ok := errors.As(err); ok {
		p.Title = e.Message
		p.Code = e.Code
		if len(e.Data) > 0 {
			p.Data = e.Data
		}
		return p
	}

	p.Detail = err.Error()
	return p
}

func (p Problem) Serialize() ([]byte, error) {
	return json.Marshal(p)
}

var ErrorsToStatus = map[uint]int{
	errors.PollNotFound.Code:      http.StatusNotFound,
	errors.PollPlaceholder.Code:   http.StatusNotFound,
	errors.PollNotStarted.Code:    http.StatusConflict,
	errors.PollEnded.Code:         http.StatusConflict,
	errors.AlreadyVoted.Code:      http.StatusConflict,
	errors.NotAdmin.Code:          http.StatusForbidden,
	errors.WrongNetwork.Code:      http.StatusBadGateway,
	errors.InvalidChoice.Code:     http.StatusBadRequest,
	errors.InvalidAddress.Code:    http.StatusBadRequest,
	errors.NetworkError.Code:      http.StatusBadGateway,
	errors.TooManyPolls.Code:      http.StatusBadGateway,
	errors.RefreshSuperseded.Code: http.StatusServiceUnavailable,
}

func StatusCode(err error) int {
	if e, ok := errors.As(err); ok {
		if status, found := ErrorsToStatus[e.Code]; found {
			return status
		}
	}
	return http.StatusInternalServerError
}

// WriteJSON writes v as json; HAL resources are written as
// "application/hal+json" and errors as problems.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) error {
	if h, ok := v.(HALResource); ok {
		w.Header().Set("Content-Type", "application/hal+json")
		v = h.Resource()
	} else if e, ok := v.(error); ok {
		w.Header().Set("Content-Type", "application/problem+json")
		v = NewErrorProblem(e, code)
	} else if _, ok := v.(Problem); ok {
		w.Header().Set("Content-Type", "application/problem+json")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}

	w.WriteHeader(code)

	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = w.Write(bs)
	return err
}

func WriteJSONError(w http.ResponseWriter, err error) {
	if werr := WriteJSON(w, StatusCode(err), err); werr != nil {
		log.Error("failed to write error", "error", werr)
	}
}
