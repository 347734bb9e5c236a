package api

import (
	"net/http"
	"strconv"

	"github.com/GianlucaGuarini/go-observable"
	"github.com/gorilla/mux"

	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/common/observer"
	"boscoin.io/pollwatch/lib/errors"
	"boscoin.io/pollwatch/lib/poll"
	"boscoin.io/pollwatch/lib/refresh"
)

const APIVersionV1 = "v1"

// API Endpoint patterns
const (
	GetPollsPattern  = "/api/v1/polls"
	GetPollPattern   = "/api/v1/polls/{id}"
	GetStatusPattern = "/api/v1/status"
	MetricsPattern   = "/metrics"
)

// HandlerAPI serves the views published by a refresher. It never talks to
// the chain itself.
type HandlerAPI struct {
	refresher *refresh.Refresher
	config    common.Config
	observer  *observable.Observable
}

func NewHandlerAPI(refresher *refresh.Refresher, config common.Config) *HandlerAPI {
	return &HandlerAPI{
		refresher: refresher,
		config:    config,
		observer:  observer.RefreshObserver,
	}
}

func (api *HandlerAPI) SetObserver(ob *observable.Observable) *HandlerAPI {
	api.observer = ob
	return api
}

func (api *HandlerAPI) currentView(w http.ResponseWriter) (*refresh.View, bool) {
	view, found := api.refresher.Current()
	if !found {
		WriteJSON(w, http.StatusServiceUnavailable, NewDetailedStatusProblem(http.StatusServiceUnavailable, "no refresh finished yet"))
		return nil, false
	}

	return view, true
}

func (api *HandlerAPI) GetPollsHandler(w http.ResponseWriter, r *http.Request) {
	if IsEventStream(r) {
		es := NewEventStream(w, r, renderJSON)
		run := es.Start(api.observer, observer.All(observer.EventRefresh).String(), func(v interface{}) interface{} {
			if view, ok := v.(*refresh.View); ok {
				return NewPollList(view)
			}
			return v
		})
		if view, found := api.refresher.Current(); found {
			es.Render(NewPollList(view))
		}
		run()
		return
	}

	view, ok := api.currentView(w)
	if !ok {
		return
	}

	if err := WriteJSON(w, http.StatusOK, NewPollList(view)); err != nil {
		log.Error("failed to write polls", "error", err)
	}
}

func (api *HandlerAPI) GetPollHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, NewDetailedStatusProblem(http.StatusBadRequest, "poll id must be a non-negative integer"))
		return
	}

	if IsEventStream(r) {
		es := NewEventStream(w, r, renderJSON)
		run := es.Start(api.observer, observer.NewPollEvent(observer.EventRefresh, id).String(), func(v interface{}) interface{} {
			if e, ok := v.(poll.Entry); ok {
				return NewPoll(e)
			}
			return v
		})
		if view, found := api.refresher.Current(); found {
			if e, found := view.Find(id); found {
				es.Render(NewPoll(e))
			}
		}
		run()
		return
	}

	view, ok := api.currentView(w)
	if !ok {
		return
	}

	e, found := view.Find(id)
	if !found {
		err := errors.PollNotFound.Clone().SetData("poll", id)
		for _, skipped := range view.Skipped {
			if skipped == id {
				err = errors.PollPlaceholder.Clone().SetData("poll", id)
			}
		}
		WriteJSONError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, NewPoll(e)); err != nil {
		log.Error("failed to write poll", "poll", id, "error", err)
	}
}

func (api *HandlerAPI) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	view, published := api.refresher.Current()
	status := Status{
		config:    api.config,
		watcher:   api.refresher.ID(),
		voter:     api.refresher.Voter(),
		sequence:  api.refresher.Sequence(),
		view:      view,
		published: published,
	}

	if err := WriteJSON(w, http.StatusOK, status); err != nil {
		log.Error("failed to write status", "error", err)
	}
}
