// Package appdispatch implements the network-management/diagnostic
// command surface of spec.md §4.7: receive demux by APDU code byte,
// NM/ND handlers, authentication gating, proxy forwarding, manual
// service request, and wink.
//
// Grounded on the teacher's pkg/snmp/agent.go and pkg/device/simulator.go
// "one method per request code" dispatch shape, and
// pkg/protocols/device_table.go's addressed-entity lookup pattern,
// retargeted from SNMP OIDs / simulated network devices to LonTalk NM/ND
// command codes and the node's own tables.
package appdispatch

// Code is an application-layer command byte (spec.md §4.7).
type Code byte

const (
	CodeQueryID         Code = 0x61
	CodeRespondToQuery  Code = 0x62
	CodeUpdateDomain    Code = 0x63
	CodeLeaveDomain     Code = 0x64
	CodeUpdateKey       Code = 0x65
	CodeUpdateAddr      Code = 0x66
	CodeQueryAddr       Code = 0x67
	CodeQueryNVCnfg     Code = 0x68
	CodeUpdateGroupAddr Code = 0x69
	CodeQueryDomain     Code = 0x6A
	CodeUpdateNVCnfg    Code = 0x6B
	CodeSetNodeMode     Code = 0x6C
	CodeReadMemory      Code = 0x6D
	CodeWriteMemory     Code = 0x6E
	CodeChecksumRecalc  Code = 0x6F
	CodeWink            Code = 0x70
	CodeNVFetch         Code = 0x73
	CodeExpanded        Code = 0x7D
	CodeManualService   Code = 0x7F

	CodeQueryStatus      Code = 0x51
	CodeProxyCommand     Code = 0x52
	CodeClearStatus      Code = 0x53
	CodeQueryXcvr        Code = 0x54
	CodeQueryStatusFlex  Code = 0x57
	CodeQueryXcvrBidir   Code = 0x58
	CodeGetFullVersion   Code = 0x59
)

// respFailureBit marks a response as the failure variant of its command
// family (spec.md §7 "a failure response of the same command family
// (high nibble | resp_failure)").
const respFailureBit = 0x10

// respSuccess / respFailure are the NM family's (0x6x) success and failure
// response codes: the success code follows the `73` responses documented
// in spec.md §8's scenarios, and the failure code is the family's high
// nibble | respFailureBit.
const (
	respSuccess Code = 0x73
	respFailure Code = 0x60 | respFailureBit
)

// Family reports the high nibble used to route a received APDU code byte
// (spec.md §4.7: "routed ... into NM (0x6x, 0x7x), ND (0x5x), manual
// service request (0x7F), or generic application messages").
func (c Code) Family() byte {
	return byte(c) & 0xF0
}

// ExpandedSub is a sub-command selector for the EXPANDED (0x7D) command
// (spec.md §4.7).
type ExpandedSub byte

const (
	SubQueryVersion       ExpandedSub = 0x00
	SubUpdateDomainNoKey  ExpandedSub = 0x01
	SubReportDomainNoKey  ExpandedSub = 0x02
	SubReportKey          ExpandedSub = 0x03
	SubUpdateKeyOMA       ExpandedSub = 0x04
	SubQueryVersionNME    ExpandedSub = 0x05 // NME_QUERY_VERSION, exempt from auth gating
)

// WinkSub selects a WINK sub-command (spec.md §4.7).
type WinkSub byte

const (
	WinkLocal      WinkSub = 0x00
	WinkSendIDInfo WinkSub = 0x01
)

// SetNodeModeSub selects a SET_NODE_MODE sub-command (spec.md §4.7).
type SetNodeModeSub byte

const (
	NodeModeSoftOffline     SetNodeModeSub = 0
	NodeModeOnline          SetNodeModeSub = 1
	NodeModeReset           SetNodeModeSub = 2
	NodeModeExplicitState   SetNodeModeSub = 3
)

// capability bits returned by EXPANDED/QUERY_VERSION (spec.md §4.7
// "capability bits OMA|PROXY|SSI").
const (
	CapOMA   byte = 1 << 0
	CapProxy byte = 1 << 1
	CapSSI   byte = 1 << 2
)

// ExpandedVersion is the version value EXPANDED/QUERY_VERSION reports.
const ExpandedVersion byte = 2
