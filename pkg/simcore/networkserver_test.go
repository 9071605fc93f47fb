package simcore

import "testing"

func TestNetworkServerDedupesAcrossGateways(t *testing.T) {
	nodes := []*Node{NewNode(0, 0, 0, 9, 14)}
	srv := NewNetworkServer(false, nodes)

	srv.Receive(100, 0, 1, -90, true)
	srv.Receive(100, 0, 2, -80, true) // second gateway, same event: silent drop

	if srv.PacketsReceived != 1 {
		t.Errorf("PacketsReceived = %d, want 1", srv.PacketsReceived)
	}
	if gw := srv.EventGateway[100]; gw != 1 {
		t.Errorf("EventGateway[100] = %d, want 1 (the first reporter)", gw)
	}
}

func TestNetworkServerCoarseADRStepsSFByRSSI(t *testing.T) {
	nodes := []*Node{NewNode(0, 0, 0, 9, 14)}
	srv := NewNetworkServer(true, nodes)

	srv.Receive(1, 0, 1, -80, true) // well above threshold: step SF down
	if nodes[0].SF != 8 {
		t.Errorf("SF = %d, want 8 after a strong reception", nodes[0].SF)
	}

	srv.Receive(2, 0, 1, -130, true) // well below threshold: step SF up
	if nodes[0].SF != 9 {
		t.Errorf("SF = %d, want 9 after a weak reception", nodes[0].SF)
	}
}

func TestNetworkServerCoarseADRDisabledLeavesSFUnchanged(t *testing.T) {
	nodes := []*Node{NewNode(0, 0, 0, 9, 14)}
	srv := NewNetworkServer(false, nodes)

	srv.Receive(1, 0, 1, -80, true)
	if nodes[0].SF != 9 {
		t.Errorf("SF = %d, want unchanged 9 with server ADR disabled", nodes[0].SF)
	}
}
