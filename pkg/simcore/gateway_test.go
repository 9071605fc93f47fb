package simcore

import "testing"

func TestGatewayCaptureEffectStrongerFrameWins(t *testing.T) {
	gw := NewGateway(0, 0, 0)
	srv := NewNetworkServer(false, []*Node{NewNode(0, 0, 0, 7, 14), NewNode(1, 0, 0, 7, 14)})

	gw.StartReception(1, 0, 7, -80, 10, CaptureThresholdDB, 0)  // strong
	gw.StartReception(2, 1, 7, -95, 10, CaptureThresholdDB, 0)  // 15 dB weaker: loses

	gw.EndReception(1, 0, srv)
	gw.EndReception(2, 1, srv)

	if !srv.ReceivedEvents[1] {
		t.Error("event 1 (the stronger frame) should be delivered")
	}
	if srv.ReceivedEvents[2] {
		t.Error("event 2 (the weaker frame) should be lost to capture")
	}
}

func TestGatewayTotalCollisionLosesBothFrames(t *testing.T) {
	gw := NewGateway(0, 0, 0)
	srv := NewNetworkServer(false, []*Node{NewNode(0, 0, 0, 7, 14), NewNode(1, 0, 0, 7, 14)})

	gw.StartReception(1, 0, 7, -90, 10, CaptureThresholdDB, 0)
	gw.StartReception(2, 1, 7, -91, 10, CaptureThresholdDB, 0) // within capture threshold: true collision

	gw.EndReception(1, 0, srv)
	gw.EndReception(2, 1, srv)

	if srv.ReceivedEvents[1] || srv.ReceivedEvents[2] {
		t.Error("neither frame should be delivered when neither captures the other")
	}
}

func TestGatewayDifferentSFsDoNotCollide(t *testing.T) {
	gw := NewGateway(0, 0, 0)
	srv := NewNetworkServer(false, []*Node{NewNode(0, 0, 0, 7, 14), NewNode(1, 0, 0, 12, 14)})

	gw.StartReception(1, 0, 7, -90, 10, CaptureThresholdDB, 0)
	gw.StartReception(2, 1, 12, -90, 10, CaptureThresholdDB, 0)

	gw.EndReception(1, 0, srv)
	gw.EndReception(2, 1, srv)

	if !srv.ReceivedEvents[1] || !srv.ReceivedEvents[2] {
		t.Error("frames on orthogonal spreading factors must not collide")
	}
}

func TestGatewayEndReceptionOnUnknownEventIsNoop(t *testing.T) {
	gw := NewGateway(0, 0, 0)
	srv := NewNetworkServer(false, []*Node{NewNode(0, 0, 0, 7, 14)})
	gw.EndReception(999, 0, srv) // never started: must not panic or register
	if srv.ReceivedEvents[999] {
		t.Error("an EndReception with no matching StartReception must not deliver")
	}
}
