package ledger

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"boscoin.io/pollwatch/lib/errors"
)

// Kind groups failures of a call to the chain by what the user can do about
// them.
type Kind string

const (
	KindOK           Kind = "ok"
	KindUserRejected Kind = "user-rejected"
	KindCanceled     Kind = "canceled"
	KindNetwork      Kind = "network-error"
	KindReverted     Kind = "contract-reverted"
	KindInvalid      Kind = "invalid"
	KindUnknown      Kind = "unknown"
)

const (
	// EIP-1193 "User Rejected Request"
	rpcCodeUserRejected = 4001
	// geth returns this code with the revert data
	rpcCodeExecutionReverted = 3

	revertedWithoutReason = "Voting period may have ended or you already voted."
)

// Result is the outcome of one call, ready to be shown as a status line.
type Result struct {
	Kind   Kind
	Err    error
	Reason string
}

func (r Result) OK() bool {
	return r.Kind == KindOK
}

// Status is a human readable line; empty when the call succeeded.
func (r Result) Status() string {
	switch r.Kind {
	case KindOK:
		return ""
	case KindUserRejected:
		return "Error: request was rejected"
	case KindCanceled:
		return "Error: request was canceled"
	case KindNetwork:
		return fmt.Sprintf("Error: network error: %s", message(r.Err))
	case KindReverted:
		if len(r.Reason) > 0 {
			return fmt.Sprintf("Error: %s", r.Reason)
		}
		return "Error: " + revertedWithoutReason
	default:
		return fmt.Sprintf("Error: %s", message(r.Err))
	}
}

// Do runs op and classifies its error. Nothing is retried.
func Do(op func() error) Result {
	err := op()
	if err == nil {
		return Result{Kind: KindOK}
	}

	kind, reason := Classify(err)
	log.Debug("call failed", "kind", kind, "error", err)

	return Result{Kind: kind, Err: err, Reason: reason}
}

// Classify returns the kind of err and, for reverts, the revert reason when
// the node sent one.
func Classify(err error) (Kind, string) {
	if err == nil {
		return KindOK, ""
	}

	if e, ok := errors.As(err); ok {
		switch {
		case e.Code == errors.UserRejected.Code:
			return KindUserRejected, ""
		case e.Code == errors.ContractReverted.Code:
			reason, _ := e.Data["reason"].(string)
			return KindReverted, reason
		case e.Code == errors.NetworkError.Code, e.Code == errors.WrongNetwork.Code:
			return KindNetwork, ""
		case e.Code == errors.UnknownError.Code:
			return KindUnknown, ""
		case e.Code >= 100 && e.Code < 200:
			return KindInvalid, e.Message
		}
	}

	// interrupted or superseded by this process, not refused by a wallet
	if stderrors.Is(err, context.Canceled) {
		return KindCanceled, ""
	}

	var rpcErr rpc.Error
	if stderrors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case rpcCodeUserRejected:
			return KindUserRejected, ""
		case rpcCodeExecutionReverted:
			return KindReverted, revertReason(err)
		}
	}

	if strings.Contains(err.Error(), "execution reverted") {
		return KindReverted, revertReason(err)
	}

	if isNetworkError(err) {
		return KindNetwork, ""
	}

	return KindUnknown, ""
}

func isNetworkError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, io.ErrUnexpectedEOF) ||
		stderrors.Is(err, syscall.ECONNREFUSED) ||
		stderrors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var urlErr *url.Error
	return stderrors.As(err, &urlErr)
}

func revertReason(err error) string {
	var dataErr rpc.DataError
	if stderrors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(s); decodeErr == nil {
				if reason, unpackErr := abi.UnpackRevert(data); unpackErr == nil {
					return reason
				}
			}
		}
	}

	// "execution reverted: <reason>"
	msg := err.Error()
	if i := strings.Index(msg, "execution reverted: "); i >= 0 {
		return strings.TrimSpace(msg[i+len("execution reverted: "):])
	}

	return ""
}

func message(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := errors.As(err); ok {
		return e.Message
	}
	return err.Error()
}
