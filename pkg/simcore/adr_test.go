package simcore

import "testing"

func TestADRStepsSFUpOnHighPER(t *testing.T) {
	n := NewNode(0, 0, 0, 9, 14)
	for i := 0; i < 10; i++ {
		delivered := i < 5 // 50% PER, well above the threshold
		n.recordTransmission(true, delivered, -5, true)
	}
	if n.SF <= 9 {
		t.Errorf("SF = %d, want > 9 after sustained high PER", n.SF)
	}
}

func TestADRStepsSFDownOnExcellentMargin(t *testing.T) {
	n := NewNode(0, 0, 0, 12, 14)
	for i := 0; i < 5; i++ {
		n.recordTransmission(true, true, 20, true) // far above any SF's required SNR
	}
	if n.SF >= 12 {
		t.Errorf("SF = %d, want < 12 after sustained excellent margin", n.SF)
	}
}

func TestADRDisabledOnServerKeepsHistoryButNeverAdjusts(t *testing.T) {
	n := NewNode(0, 0, 0, 9, 14)
	startSF, startTxPower := n.SF, n.TxPower
	for i := 0; i < 10; i++ {
		delivered := i < 5 // 50% PER, would push SF up if server ADR were enabled
		n.recordTransmission(false, delivered, -5, true)
	}
	if n.SF != startSF || n.TxPower != startTxPower {
		t.Errorf("SF/TxPower = %d/%v, want unchanged %d/%v when server ADR is disabled", n.SF, n.TxPower, startSF, startTxPower)
	}
	if len(n.History) == 0 {
		t.Error("History is empty, want samples still recorded while server ADR is disabled")
	}
}

func TestADRHistoryRingIsBounded(t *testing.T) {
	n := NewNode(0, 0, 0, 10, 10)
	for i := 0; i < maxADRHistory+10; i++ {
		n.recordTransmission(false, true, 0, true)
	}
	if len(n.History) != maxADRHistory {
		t.Errorf("len(History) = %d, want %d", len(n.History), maxADRHistory)
	}
}

func TestADRIgnoresNoSNRSamples(t *testing.T) {
	n := NewNode(0, 0, 0, 9, 14)
	startSF := n.SF
	for i := 0; i < 5; i++ {
		n.recordTransmission(true, true, 0, false)
	}
	if n.SF != startSF {
		t.Errorf("SF = %d, want unchanged %d when no SNR sample is available and PER is zero", n.SF, startSF)
	}
}
