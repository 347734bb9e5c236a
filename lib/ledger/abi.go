package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// SessionABI is the multi-session voting contract: any number of time-boxed
// sessions, each with two choices.
const SessionABI = `[
	{"type":"function","name":"createSession","stateMutability":"nonpayable",
	 "inputs":[{"name":"_startTime","type":"uint256"},{"name":"_duration","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"castVote","stateMutability":"nonpayable",
	 "inputs":[{"name":"_sessionId","type":"uint256"},{"name":"_voteForAlice","type":"bool"}],"outputs":[]},
	{"type":"function","name":"getSession","stateMutability":"view",
	 "inputs":[{"name":"_sessionId","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"},{"name":"","type":"uint256"},{"name":"","type":"uint256"},{"name":"","type":"uint256"},{"name":"","type":"bool"}]},
	{"type":"function","name":"hasVotedInSession","stateMutability":"view",
	 "inputs":[{"name":"_sessionId","type":"uint256"},{"name":"_voter","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"sessionCount","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"admin","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]}
]`

// SingleSlotABI is the older single-ballot contract which keeps one encrypted
// vote per address.
const SingleSlotABI = `[
	{"type":"function","name":"castVote","stateMutability":"nonpayable",
	 "inputs":[{"name":"_encryptedChoice","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"isVotingActive","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"hasVoted","stateMutability":"view",
	 "inputs":[{"name":"_voter","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getVote","stateMutability":"view",
	 "inputs":[{"name":"_voter","type":"address"}],"outputs":[{"name":"","type":"bytes"}]}
]`

const (
	MethodCreateSession     = "createSession"
	MethodCastVote          = "castVote"
	MethodGetSession        = "getSession"
	MethodHasVotedInSession = "hasVotedInSession"
	MethodSessionCount      = "sessionCount"
	MethodAdmin             = "admin"

	MethodIsVotingActive = "isVotingActive"
	MethodHasVoted       = "hasVoted"
	MethodGetVote        = "getVote"
)

var (
	sessionABI    abi.ABI
	singleSlotABI abi.ABI
)

func init() {
	var err error
	if sessionABI, err = abi.JSON(strings.NewReader(SessionABI)); err != nil {
		panic(err)
	}
	if singleSlotABI, err = abi.JSON(strings.NewReader(SingleSlotABI)); err != nil {
		panic(err)
	}
}
