package simcore

import "testing"

func TestNewNodeClampsOutOfRangeParameters(t *testing.T) {
	n := NewNode(0, 0, 0, 20, 30)
	if n.SF != 12 {
		t.Errorf("SF = %d, want clamped to 12", n.SF)
	}
	if n.TxPower != 14 {
		t.Errorf("TxPower = %v, want clamped to 14", n.TxPower)
	}

	n2 := NewNode(1, 0, 0, 1, -5)
	if n2.SF != 7 {
		t.Errorf("SF = %d, want clamped to 7", n2.SF)
	}
	if n2.TxPower != 2 {
		t.Errorf("TxPower = %v, want clamped to 2", n2.TxPower)
	}
}

func TestNodeDistanceTo(t *testing.T) {
	n := NewNode(0, 0, 0, 7, 14)
	if got := n.DistanceTo(3, 4); got != 5 {
		t.Errorf("DistanceTo(3,4) = %v, want 5", got)
	}
}

func TestNodeAddEnergyAccumulates(t *testing.T) {
	n := NewNode(0, 0, 0, 7, 14)
	n.AddEnergy(1.5)
	n.AddEnergy(2.5)
	if n.EnergyConsumedJ != 4.0 {
		t.Errorf("EnergyConsumedJ = %v, want 4.0", n.EnergyConsumedJ)
	}
}
