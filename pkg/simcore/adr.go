package simcore

import "math"

// requiredSNR is the minimum demodulation SNR per spreading factor, in
// dB, used by the node-side ADR margin calculation.
var requiredSNR = map[int]float64{
	7:  -7.5,
	8:  -10.0,
	9:  -12.5,
	10: -15.0,
	11: -17.5,
	12: -20.0,
}

const (
	installationMarginDB = 10.0
	adrPERThreshold      = 0.1
)

// recordTransmission appends one ADR ring-buffer sample after a frame's
// outcome is known, then evaluates the policy immediately: every
// transmission is a candidate adjustment point, not just every Nth one.
// The ring is always updated regardless of serverADREnabled; only the
// resulting SF/TxPower mutation is gated on it.
func (n *Node) recordTransmission(serverADREnabled bool, delivered bool, snr float64, hasSNR bool) {
	n.pushHistory(ADRSample{SNR: snr, HasSNR: hasSNR, Delivered: delivered})
	n.applyADR(serverADREnabled)
}

// applyADR runs the node-side link-adaptation policy over the current
// ring buffer: PER is the fraction of lost frames in history;
// margin is computed from the best SNR sample seen. Bad links (high
// PER) step SF up and, once already at SF12, step power up 3dB; good
// links (ample margin) step SF and power down together 3dB per step
// while SF>7, then continue spending steps on power alone down to its
// floor. The ring is cleared after every applied adjustment. If the
// network server's ADR is disabled, the sample is kept but no
// adjustment is applied.
func (n *Node) applyADR(serverADREnabled bool) {
	if len(n.History) == 0 {
		return
	}
	if !serverADREnabled {
		return
	}

	lost := 0
	bestSNR := -math.MaxFloat64
	haveSNR := false
	for _, s := range n.History {
		if !s.Delivered {
			lost++
		}
		if s.HasSNR && s.SNR > bestSNR {
			bestSNR = s.SNR
			haveSNR = true
		}
	}
	per := float64(lost) / float64(len(n.History))

	if per > adrPERThreshold {
		if n.SF < 12 {
			n.SF++
		} else if n.TxPower < 14 {
			n.TxPower += 3
			n.TxPower = clampTxPower(n.TxPower)
		}
		n.clearHistory()
		return
	}

	if !haveSNR {
		return
	}
	margin := bestSNR - requiredSNR[n.SF] - installationMarginDB
	if margin <= 0 {
		return
	}
	steps := int(margin / 3.0)
	for steps > 0 {
		if n.SF > 7 {
			n.SF--
			n.TxPower -= 3
			n.TxPower = clampTxPower(n.TxPower)
		} else if n.TxPower > 2 {
			n.TxPower -= 3
			n.TxPower = clampTxPower(n.TxPower)
		} else {
			break
		}
		steps--
	}
	n.clearHistory()
}
