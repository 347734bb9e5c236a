package api

import (
	"strconv"
	"strings"

	"github.com/nvellon/hal"

	"boscoin.io/pollwatch/lib/common"
	"boscoin.io/pollwatch/lib/poll"
	"boscoin.io/pollwatch/lib/refresh"
)

type HALResource interface {
	Resource() *hal.Resource
}

type Resource interface {
	HALResource
	LinkSelf() string
	GetMap() hal.Entry
}

// Poll renders one reconciled poll.
type Poll struct {
	e poll.Entry
}

func NewPoll(e poll.Entry) *Poll {
	return &Poll{e: e}
}

func (p Poll) GetMap() hal.Entry {
	entry := hal.Entry{
		"id":          p.e.ID,
		"start_time":  common.FormatISO8601(p.e.Start()),
		"end_time":    common.FormatISO8601(p.e.End()),
		"votes_for_a": p.e.VotesForA,
		"votes_for_b": p.e.VotesForB,
		"total_votes": p.e.TotalVotes(),
		"ended":       p.e.Ended,
		"class":       p.e.Class,
		"timer":       p.e.Timer,
		"overdue":     p.e.Overdue,
		"voted":       p.e.Voted,
		"can_vote":    p.e.CanVote,
		"stale":       p.e.Stale,
	}
	if leader, ok := p.e.Leader(); ok {
		entry["leader"] = leader.String()
	}

	return entry
}

func (p Poll) Resource() *hal.Resource {
	return hal.NewResource(p, p.LinkSelf())
}

func (p Poll) LinkSelf() string {
	return strings.Replace(GetPollPattern, "{id}", strconv.FormatUint(p.e.ID, 10), -1)
}

// PollList embeds every class of a view as its own collection.
type PollList struct {
	view *refresh.View
}

func NewPollList(view *refresh.View) *PollList {
	return &PollList{view: view}
}

func (l PollList) GetMap() hal.Entry {
	return hal.Entry{
		"sequence":   l.view.Sequence,
		"now":        l.view.Now,
		"voter":      l.view.Voter,
		"fetched_at": common.FormatISO8601(l.view.FetchedAt),
		"count":      l.view.Count,
		"skipped":    l.view.Skipped,
		"failed":     l.view.Failed,
		"offline":    l.view.Offline,
	}
}

func collection(entries []poll.Entry) hal.ResourceCollection {
	rc := hal.ResourceCollection{}
	for _, e := range entries {
		rc = append(rc, NewPoll(e).Resource())
	}
	return rc
}

func (l PollList) Resource() *hal.Resource {
	r := hal.NewResource(l, l.LinkSelf())
	r.EmbedCollection("ongoing", collection(l.view.Ongoing))
	r.EmbedCollection("archived", collection(l.view.Archived))
	r.EmbedCollection("pending", collection(l.view.Pending))
	r.AddLink("poll", hal.NewLink(GetPollPattern, hal.LinkAttr{"templated": true}))
	r.AddLink("status", hal.NewLink(GetStatusPattern))

	return r
}

func (l PollList) LinkSelf() string {
	return GetPollsPattern
}

// Status tells which network is watched and how fresh the data is.
type Status struct {
	config    common.Config
	watcher   string
	voter     string
	sequence  uint64
	view      *refresh.View
	published bool
}

func (s Status) GetMap() hal.Entry {
	entry := hal.Entry{
		"watcher":          s.watcher,
		"voter":            s.voter,
		"sequence":         s.sequence,
		"chain_id":         s.config.ChainIDHex(),
		"chain_name":       s.config.ChainName,
		"rpc_url":          s.config.RPCURL,
		"explorer_url":     s.config.ExplorerURL,
		"contract_address": s.config.ContractAddress,
		"refresh_interval": s.config.RefreshInterval.String(),
	}
	if s.published {
		entry["last_refresh"] = common.FormatISO8601(s.view.FetchedAt)
		entry["last_refresh_duration"] = s.view.Duration.String()
		entry["offline"] = s.view.Offline
	}

	return entry
}

func (s Status) Resource() *hal.Resource {
	r := hal.NewResource(s, s.LinkSelf())
	r.AddLink("polls", hal.NewLink(GetPollsPattern))
	return r
}

func (s Status) LinkSelf() string {
	return GetStatusPattern
}
