package appdispatch

import (
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/errlog"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/nodeconfig"
	"github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/xcvrlink"
)

// Selector is QUERY_ID's matching criterion (spec.md §4.7).
type Selector byte

const (
	SelectorUnconfigured    Selector = 0
	SelectorSelected        Selector = 1
	SelectorSelectedUncfg   Selector = 2
)

// ReceiveContext carries the per-received-PDU facts a handler needs
// beyond the command bytes themselves: whether the request arrived
// authenticated, whether it arrived MULTICAST (for UPDATE_GROUP_ADDR),
// which domain/group it arrived on, and the transceiver parameters
// snapshotted at receive time.
type ReceiveContext struct {
	Authenticated bool
	Multicast     bool
	DomainIndex   int
	Group         byte
	XcvrParam     xcvrlink.XcvrParam
}

// Stats are the node-wide counters QUERY_STATUS/QUERY_STATUS_FLEX report
// (spec.md §4.7's NDQueryStat).
type Stats struct {
	TransmitErrors  uint32
	TransmitTries   uint32
	ReceiveErrors   uint32
	MissedMessages  uint32
	L2CollisionsAvg uint32
}

// Dispatcher routes received APDUs to NM/ND handlers and maintains the
// node-wide mutable state those handlers read and write: the persistent
// configuration, error log, statistics, select-query flag, service LED
// state, and the clock/scheduled-reset signal.
//
// Grounded on pkg/snmp/agent.go's Agent (one struct holding device state
// plus a dispatch method per request kind) and pkg/device/simulator.go's
// per-protocol handler methods.
type Dispatcher struct {
	Config   *nodeconfig.Config
	Errors   *errlog.Log
	Stats    Stats
	OMAKey   [12]byte

	selectQuery   bool
	resetCause    nodeconfig.ResetCause
	resetScheduled bool
	appRunning    bool
	serviceLEDOn  bool
	serviceLEDFlash bool
	version       byte
	build         uint16
	modelNumber   uint16
	persist       func()
}

// New builds a Dispatcher over cfg, persisting via persist after every
// mutating NM command (spec.md §3's "persisted on every mutation").
func New(cfg *nodeconfig.Config, errors *errlog.Log, persist func()) *Dispatcher {
	return &Dispatcher{
		Config:     cfg,
		Errors:     errors,
		appRunning: true,
		persist:    persist,
		version:    BaseFirmwareVersion,
	}
}

// allowListed is the set of commands permitted through auth gating even
// when configData.nmAuth is set and the node is configured (spec.md §4.7).
func allowListed(code Code, sub ExpandedSub, isExpanded bool) bool {
	switch code {
	case CodeQueryID, Code(0x62) /* RESPOND_TO_QUERY */, CodeQueryStatus,
		CodeProxyCommand, CodeQueryStatusFlex, CodeQueryXcvrBidir, CodeGetFullVersion:
		return true
	}
	if isExpanded && sub == SubQueryVersionNME {
		return true
	}
	return false
}

// Handle dispatches one received APDU (code byte plus data) and returns
// the response body to send (nil if no response is warranted) and
// whether a response should be sent at all.
func (d *Dispatcher) Handle(code Code, data []byte, ctx ReceiveContext) (resp []byte, send bool) {
	configured := !d.Config.AllDomainsInvalid()
	if configured && d.Config.NmAuth && !ctx.Authenticated {
		isExpanded := code == CodeExpanded
		var sub ExpandedSub
		if isExpanded && len(data) > 0 {
			sub = ExpandedSub(data[0])
		}
		if !allowListed(code, sub, isExpanded) {
			d.Errors.Record(errlog.AuthenticationMismatch)
			return d.failureBody(code), code.Family() == 0x60 || code.Family() == 0x70
		}
	}

	switch code {
	case CodeQueryID:
		return d.handleQueryID(data)
	case CodeRespondToQuery:
		return d.handleRespondToQuery(data)
	case CodeUpdateDomain:
		return d.handleUpdateDomain(data)
	case CodeLeaveDomain:
		return d.handleLeaveDomain(data)
	case CodeUpdateKey:
		return d.handleUpdateKey(data)
	case CodeUpdateAddr:
		return d.handleUpdateAddr(data)
	case CodeQueryAddr:
		return d.handleQueryAddr(data)
	case CodeQueryDomain:
		return d.handleQueryDomain(data)
	case CodeUpdateNVCnfg:
		return d.handleUpdateNVCnfg(data)
	case CodeQueryNVCnfg, CodeNVFetch:
		return d.handleQueryNV(data)
	case CodeUpdateGroupAddr:
		return d.handleUpdateGroupAddr(data, ctx)
	case CodeSetNodeMode:
		return d.handleSetNodeMode(data)
	case CodeReadMemory:
		return d.handleReadMemory(data)
	case CodeWriteMemory:
		return d.handleWriteMemory(data)
	case CodeChecksumRecalc:
		d.Config.Recalc()
		d.save()
		return d.successBody(nil), true
	case CodeWink:
		return d.handleWink(data)
	case CodeExpanded:
		return d.handleExpanded(data)
	case CodeManualService:
		// Manual service request is a broadcast the node itself emits;
		// ignored on receive (spec.md §4.7).
		return nil, false
	case CodeQueryStatus, CodeQueryStatusFlex:
		return d.handleQueryStatus(), true
	case CodeClearStatus:
		d.Stats = Stats{}
		d.Errors.Clear()
		d.resetCause = nodeconfig.ResetCleared
		return d.successBody(nil), true
	case CodeQueryXcvr, CodeQueryXcvrBidir:
		return d.handleQueryXcvr(ctx), true
	case CodeGetFullVersion:
		return d.handleGetFullVersion(), true
	default:
		d.Errors.Record(errlog.UnknownPDU)
		return nil, false
	}
}

func (d *Dispatcher) save() {
	if d.persist != nil {
		d.persist()
	}
}

func (d *Dispatcher) successBody(body []byte) []byte {
	return append([]byte{byte(respSuccess)}, body...)
}

func (d *Dispatcher) failureBody(code Code) []byte {
	family := code.Family()
	return []byte{family | respFailureBit}
}

// ResetScheduled reports whether a handler has asked for the node to be
// reset (e.g. LEAVE_DOMAIN emptying the domain table, or SET_NODE_MODE's
// reset sub-command).
func (d *Dispatcher) ResetScheduled() (cause nodeconfig.ResetCause, scheduled bool) {
	return d.resetCause, d.resetScheduled
}

// AckResetScheduled clears the pending-reset flag once the scheduler has
// acted on it.
func (d *Dispatcher) AckResetScheduled() {
	d.resetScheduled = false
}

// ServiceLED reports the current service-LED display state (spec.md §7):
// flashing while APPL_UNCNFG/CNFG_OFFLINE, solid while NO_APPL_UNCNFG,
// off when healthy.
func (d *Dispatcher) ServiceLED() (on bool, flash bool) {
	switch d.Config.ProgramState {
	case nodeconfig.ApplUnconfig, nodeconfig.ConfigOffline:
		return true, true
	case nodeconfig.NoApplUnconfig:
		return true, false
	default:
		return false, false
	}
}
