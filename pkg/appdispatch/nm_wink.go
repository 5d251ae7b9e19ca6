package appdispatch

// WinkTrigger is called to physically wink the node (flash a service LED,
// sound a buzzer, etc.) when WINK carries no sub-command.
var WinkTrigger func()

func (d *Dispatcher) handleWink(data []byte) ([]byte, bool) {
	if len(data) == 0 {
		if WinkTrigger != nil {
			WinkTrigger()
		}
		return nil, false
	}

	switch WinkSub(data[0]) {
	case WinkSendIDInfo:
		// spec.md §9 open question 3: the reference firmware reads the
		// niIndex byte at data[1] without first checking that the PDU
		// actually carries one, on the assumption SEND_ID_INFO always
		// arrives as a 2-byte payload. Reproduced here as "read it if
		// present, default to 0 rather than panic or reject" — matching
		// the firmware's observable behavior (no auth bypass, no crash)
		// without adopting C's out-of-bounds read itself.
		var niIndex byte
		if len(data) > 1 {
			niIndex = data[1]
		}
		_ = niIndex // addr-table cross-reference is not modeled; id/program suffice
		body := append([]byte{RespWithPayload}, d.Config.NodeID[:]...)
		body = append(body, d.Config.ProgramID[:]...)
		return body, true
	default:
		if WinkTrigger != nil {
			WinkTrigger()
		}
		return nil, false
	}
}
