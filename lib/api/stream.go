package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/GianlucaGuarini/go-observable"
)

const ContentTypeEventStream = "text/event-stream"

// IsEventStream checks whether the client asked for a stream.
func IsEventStream(r *http.Request) bool {
	return r.Header.Get("Accept") == ContentTypeEventStream
}

type RenderFunc func(v interface{}) ([]byte, error)

// renderJSON renders HAL resources with their links.
func renderJSON(v interface{}) ([]byte, error) {
	if h, ok := v.(HALResource); ok {
		return json.Marshal(h.Resource())
	}
	return json.Marshal(v)
}

// EventStream sends every event triggered on an observable as a
// server-sent event, `data: <json>` followed by a blank line, until the
// client goes away.
type EventStream struct {
	renderFunc RenderFunc
	request    *http.Request
	writer     http.ResponseWriter
	flusher    http.Flusher
	err        error
	rendered   bool
}

func NewEventStream(w http.ResponseWriter, r *http.Request, renderFunc RenderFunc) *EventStream {
	es := &EventStream{
		request:    r,
		writer:     w,
		renderFunc: renderFunc,
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		es.err = fmt.Errorf("http: can't do chunked response")
	} else {
		es.flusher = flusher
	}

	return es
}

func (s *EventStream) writeHeader() {
	if s.rendered {
		return
	}
	s.writer.Header().Set("Content-Type", ContentTypeEventStream)
	s.writer.Header().Set("Cache-Control", "no-cache")
	s.writer.WriteHeader(http.StatusOK)
	s.rendered = true
}

func (s *EventStream) write(payload []byte) {
	s.writeHeader()
	fmt.Fprintf(s.writer, "data: %s\n\n", payload)
	s.flusher.Flush()
}

// Render sends v right away, eg. the current state before any event. It must
// not be called while the func returned by `Start` is running.
func (s *EventStream) Render(v interface{}) {
	if s.err != nil {
		return
	}

	payload, err := s.renderFunc(v)
	if err != nil {
		payload = s.errMessage(err)
	}
	s.write(payload)
}

// Start subscribes to event and returns the func which streams until the
// request is done. convert, when not nil, maps each event value before it is
// rendered.
func (s *EventStream) Start(ob *observable.Observable, event string, convert func(interface{}) interface{}) func() {
	if s.err != nil {
		WriteJSON(s.writer, http.StatusInternalServerError, NewDetailedStatusProblem(http.StatusInternalServerError, s.err.Error()))
		return func() {}
	}

	msg := make(chan []byte)
	stop := make(chan struct{})

	onFunc := func(args ...interface{}) {
		if len(args) < 1 {
			return
		}

		v := args[0]
		if convert != nil {
			v = convert(v)
		}

		payload, err := s.renderFunc(v)
		if err != nil {
			payload = s.errMessage(err)
		}

		select {
		case msg <- payload:
		case <-stop:
		}
	}
	ob.On(event, onFunc)

	s.writeHeader()
	s.flusher.Flush()

	return func() {
		defer ob.Off(event, onFunc)

		for {
			select {
			case payload := <-msg:
				s.write(payload)
			case <-s.request.Context().Done():
				close(stop)
				return
			}
		}
	}
}

func (s *EventStream) errMessage(err error) []byte {
	b, merr := json.Marshal(NewErrorProblem(err, StatusCode(err)))
	if merr != nil {
		return []byte{}
	}
	return b
}
