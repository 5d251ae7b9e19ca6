package appdispatch

// ndResponse marks an ND response with the high bit set over its request
// code, rather than a family-specific response code (spec.md §8 scenario 4:
// QUERY_STATUS 0x51 answers as 0xD1).
func ndResponse(code Code) byte {
	return byte(code) | 0x80
}

// handleQueryStatus reports the NDQueryStat structure: transmit/receive
// statistics, reset cause, program state, version, error log, and model
// number (spec.md §4.7).
func (d *Dispatcher) handleQueryStatus() []byte {
	body := []byte{
		ndResponse(CodeQueryStatus),
		byte(d.Stats.TransmitErrors), byte(d.Stats.TransmitTries),
		byte(d.Stats.ReceiveErrors), byte(d.Stats.MissedMessages),
		byte(d.Stats.L2CollisionsAvg),
		byte(d.resetCause),
		byte(d.Config.ProgramState),
		d.version,
	}
	body = append(body, byte(len(d.Errors.Entries())))
	body = append(body, byte(d.modelNumber>>8), byte(d.modelNumber))
	return body
}

// handleQueryXcvr reports the transceiver parameter snapshot attached to
// the receive context (spec.md §4.7 QUERY_XCVR/QUERY_XCVR_BIDIR).
func (d *Dispatcher) handleQueryXcvr(ctx ReceiveContext) []byte {
	p := ctx.XcvrParam
	valid := byte(0)
	if p.Valid {
		valid = 1
	}
	return []byte{ndResponse(CodeQueryXcvr), valid, byte(p.SignalDB), p.Collisions}
}

// handleGetFullVersion reports the firmware version and build number.
func (d *Dispatcher) handleGetFullVersion() []byte {
	return []byte{ndResponse(CodeGetFullVersion), d.version, byte(d.build >> 8), byte(d.build)}
}
