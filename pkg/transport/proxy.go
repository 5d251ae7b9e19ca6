package transport

import "github.com/google/uuid"

// ProxyTransaction tracks one in-flight ND_PROXY_COMMAND forward: a
// received request turned into a new outbound REQUEST tagged with the
// original request's reqId, so its eventual response can be re-emitted
// under the same reqId to the original requester (spec.md §4.5).
type ProxyTransaction struct {
	ReqID    string
	Priority bool
	AltPath  bool
	Outgoing *Outgoing
}

// NewProxyTransaction starts forwarding a proxy command, minting a reqId
// if the inbound request did not already carry one.
func NewProxyTransaction(reqID string, priority, altPath bool, out *Outgoing) *ProxyTransaction {
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return &ProxyTransaction{ReqID: reqID, Priority: priority, AltPath: altPath, Outgoing: out}
}

// Resolved reports whether the forwarded transaction has concluded and,
// once it has, whether it succeeded. No response payload is returned.
func (p *ProxyTransaction) Resolved() (done bool, success bool) {
	if !p.Outgoing.Done() {
		return false, false
	}
	return true, p.Outgoing.Success()
}
