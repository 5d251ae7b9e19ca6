package mac

import "github.com/LonMarkTech/lon-stack-dx-lmi-sub001/pkg/clock"

// NtsMultiplier scales the spec-time-unit constants below to the actual
// input clock. At the reference 25MHz/40ns tick, nts == 1.
type NtsMultiplier uint32

// TimingConfig holds the configuration-derived values that parameterize
// the MAC timers (spec.md §4.2).
type TimingConfig struct {
	// ConfigReserved mirrors the node's reserved configuration bytes;
	// index 1 feeds the cycle timer, index 2 feeds beta2.
	ConfigReserved [3]byte
	// ChannelPriorities is the number of priority slots on the channel.
	ChannelPriorities int
	// NodePriority is this node's priority slot number (1-based; 0 means
	// no priority slot owned).
	NodePriority int
	// RxPad/TxPad are the raw encoded pad values from configuration
	// (spec.md §4.2's "v*41 for v<128 else (v-128)*145" encoding).
	RxPad byte
	TxPad byte
	Nts   NtsMultiplier
}

func decodePad(v byte) clock.Tick {
	if v < 128 {
		return clock.Tick(uint32(v) * 41)
	}
	return clock.Tick(uint32(v-128) * 145)
}

// Beta2 computes β2 = (configReserved[2]*20 + 40) * nts.
func (c TimingConfig) Beta2() clock.Tick {
	return clock.Tick(uint32(c.ConfigReserved[2])*20+40) * clock.Tick(c.Nts)
}

// Beta1PostRx computes β1_postRx = (285 + β2(spec) + rxPad + 317) * nts.
// "β2(spec)" is the un-scaled configReserved[2]*20+40 term, matching the
// source's practice of mixing a spec-unit constant with the nts-scaled
// rxPad/txPad terms before the single final *nts multiply implied by the
// formula in spec.md §4.2.
func (c TimingConfig) Beta1PostRx() clock.Tick {
	beta2Spec := clock.Tick(uint32(c.ConfigReserved[2])*20 + 40)
	return (285 + beta2Spec + decodePad(c.RxPad) + 317) * clock.Tick(c.Nts)
}

// Beta1PostTx computes β1_postTx = (307 + β2(spec) + txPad + 317) * nts.
func (c TimingConfig) Beta1PostTx() clock.Tick {
	beta2Spec := clock.Tick(uint32(c.ConfigReserved[2])*20 + 40)
	return (307 + beta2Spec + decodePad(c.TxPad) + 317) * clock.Tick(c.Nts)
}

// Wbase computes Wbase = 16 * β2.
func (c TimingConfig) Wbase() clock.Tick {
	return 16 * c.Beta2()
}

// CycleTicks computes cycleTicks = configReserved[1]*1794*nts.
func (c TimingConfig) CycleTicks() clock.Tick {
	return clock.Tick(uint32(c.ConfigReserved[1])*1794) * clock.Tick(c.Nts)
}

// PriorityChannelTicks computes
// priorityChannelTicks = (channelPriorities [+16 post-tx]) * β2.
func (c TimingConfig) PriorityChannelTicks(postTx bool) clock.Tick {
	n := c.ChannelPriorities
	if postTx {
		n += 16
	}
	return clock.Tick(n) * c.Beta2()
}

// PriorityNodeTicks computes priorityNodeTicks = (nodePriority-1) * β2.
func (c TimingConfig) PriorityNodeTicks() clock.Tick {
	n := c.NodePriority - 1
	if n < 0 {
		n = 0
	}
	return clock.Tick(n) * c.Beta2()
}
