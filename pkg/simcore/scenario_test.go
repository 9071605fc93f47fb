package simcore

import "testing"

// TestScenarioSingleNodeCloseRangeAllDelivered is S1: one node at the
// gateway's own position, SF7, no shadowing, five periodic packets.
// Every transmission must be delivered with no collisions.
func TestScenarioSingleNodeCloseRangeAllDelivered(t *testing.T) {
	cfg := Config{
		Seed:              1,
		Nodes:             []NodeConfig{{X: 0, Y: 0, SF: 7, TxPower: 14}},
		Gateways:          []GatewayConfig{{X: 0, Y: 0}},
		Mode:              ModePeriodic,
		PacketIntervalS:   10,
		DutyCycle:         1.0,
		PacketsToSend:     5,
		HasShadowingStdDB: true,
		ShadowingStdDB:    0,
	}
	sim, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	sim.Run(0)

	m := sim.Metrics()
	if m.PacketsSent != 5 {
		t.Fatalf("PacketsSent = %d, want 5", m.PacketsSent)
	}
	if m.PDR != 1.0 {
		t.Errorf("PDR = %v, want 1.0", m.PDR)
	}
	if m.Collisions != 0 {
		t.Errorf("Collisions = %d, want 0", m.Collisions)
	}
	if m.PacketsDelivered != 5 {
		t.Errorf("PacketsDelivered = %d, want 5", m.PacketsDelivered)
	}
}

// TestScenarioCoLocatedEqualPowerAllCollide is S2: two co-located
// nodes at equal SF and TX power, transmitting in lockstep, three
// packets each (the cap is shared, so 6 in total). Every
// transmission collides without capture, so nothing is delivered.
func TestScenarioCoLocatedEqualPowerAllCollide(t *testing.T) {
	cfg := Config{
		Seed: 2,
		Nodes: []NodeConfig{
			{X: 500, Y: 500, SF: 12, TxPower: 14},
			{X: 500, Y: 500, SF: 12, TxPower: 14},
		},
		Gateways:          []GatewayConfig{{X: 500, Y: 500}},
		Mode:              ModePeriodic,
		PacketIntervalS:   10,
		DutyCycle:         1.0,
		PacketsToSend:     6,
		HasShadowingStdDB: true,
		ShadowingStdDB:    0,
	}
	sim, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	sim.Run(0)

	m := sim.Metrics()
	if m.PacketsSent != 6 {
		t.Fatalf("PacketsSent = %d, want 6", m.PacketsSent)
	}
	if m.PacketsDelivered != 0 {
		t.Errorf("PacketsDelivered = %d, want 0", m.PacketsDelivered)
	}
	if m.Collisions != 6 {
		t.Errorf("Collisions = %d, want 6", m.Collisions)
	}
}

// TestScenarioCaptureEffectFavorsStrongerNode is S3: same layout as S2
// but node A transmits far above node B's power, so the capture effect
// lets A's frames through every time while B's are always lost.
func TestScenarioCaptureEffectFavorsStrongerNode(t *testing.T) {
	cfg := Config{
		Seed: 3,
		Nodes: []NodeConfig{
			{X: 500, Y: 500, SF: 12, TxPower: 14},
			{X: 500, Y: 500, SF: 12, TxPower: 2},
		},
		Gateways:          []GatewayConfig{{X: 500, Y: 500}},
		Mode:              ModePeriodic,
		PacketIntervalS:   10,
		DutyCycle:         1.0,
		PacketsToSend:     6,
		HasShadowingStdDB: true,
		ShadowingStdDB:    0,
	}
	sim, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	sim.Run(0)

	m := sim.Metrics()
	if m.PacketsDelivered != 3 {
		t.Errorf("PacketsDelivered = %d, want 3", m.PacketsDelivered)
	}
	if m.Collisions != 3 {
		t.Errorf("Collisions = %d, want 3", m.Collisions)
	}

	delivered := 0
	for _, rec := range sim.EventRecords() {
		if rec.Result == ResultSuccess {
			delivered++
			if rec.NodeID != 0 {
				t.Errorf("delivered frame from node %d, want node 0 (the stronger transmitter)", rec.NodeID)
			}
		}
	}
	if delivered != 3 {
		t.Errorf("found %d Success records, want 3", delivered)
	}
}

// TestScenarioNoCoverageAtExtremeRange is S4: a node 50km from its
// gateway at SF7 sits below the receiver sensitivity floor, so every
// transmission is classified NoCoverage and none are delivered.
func TestScenarioNoCoverageAtExtremeRange(t *testing.T) {
	cfg := Config{
		Seed:              4,
		Nodes:             []NodeConfig{{X: 50000, Y: 0, SF: 7, TxPower: 14}},
		Gateways:          []GatewayConfig{{X: 0, Y: 0}},
		Mode:              ModePeriodic,
		PacketIntervalS:   10,
		DutyCycle:         1.0,
		PacketsToSend:     4,
		HasShadowingStdDB: true,
		ShadowingStdDB:    0,
	}
	sim, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	sim.Run(0)

	m := sim.Metrics()
	if m.PDR != 0 {
		t.Errorf("PDR = %v, want 0", m.PDR)
	}
	if m.PacketsLostNoSignal != m.PacketsSent {
		t.Errorf("PacketsLostNoSignal = %d, want %d (= PacketsSent)", m.PacketsLostNoSignal, m.PacketsSent)
	}
	for _, rec := range sim.EventRecords() {
		if rec.Result != ResultNone && rec.Result != ResultNoCoverage {
			t.Errorf("record for event %d has result %q, want NoCoverage", rec.EventID, rec.Result)
		}
	}
}

// TestScenarioADRConvergesDownFromExcellentMargin is S5: node-side and
// server-side ADR both enabled, a link starting at SF12 with excellent
// margin must converge to a lower SF within legal TX power bounds.
func TestScenarioADRConvergesDownFromExcellentMargin(t *testing.T) {
	cfg := Config{
		Seed:              5,
		Nodes:             []NodeConfig{{X: 10, Y: 0, SF: 12, TxPower: 14}},
		Gateways:          []GatewayConfig{{X: 0, Y: 0}},
		Mode:              ModePeriodic,
		PacketIntervalS:   10,
		DutyCycle:         1.0,
		PacketsToSend:     50,
		NodeADREnabled:    true,
		ServerADREnabled:  true,
		HasShadowingStdDB: true,
		ShadowingStdDB:    0,
	}
	sim, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	sim.Run(0)

	node := sim.nodes[0]
	if node.SF >= 12 {
		t.Errorf("final SF = %d, want strictly less than 12 after 50 packets of excellent margin", node.SF)
	}
	if node.TxPower > 14 {
		t.Errorf("final TxPower = %v, want <= 14", node.TxPower)
	}
}

// TestScenarioDutyCycleSpacesRepeatedTransmissions is S6: a 1% duty
// cycle forces a long rest between consecutive starts from the same
// node, proportional to the frame's airtime.
func TestScenarioDutyCycleSpacesRepeatedTransmissions(t *testing.T) {
	cfg := Config{
		Seed:              6,
		Nodes:             []NodeConfig{{X: 0, Y: 0, SF: 12, TxPower: 14}},
		Gateways:          []GatewayConfig{{X: 0, Y: 0}},
		Mode:              ModePeriodic,
		PacketIntervalS:   1e-9,
		DutyCycle:         0.01,
		PacketsToSend:     4,
		HasShadowingStdDB: true,
		ShadowingStdDB:    0,
	}
	sim, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	duration := sim.channel.Airtime(12)
	sim.Run(0)

	var starts []float64
	for _, rec := range sim.EventRecords() {
		if rec.Result != ResultMobility {
			starts = append(starts, rec.StartTime)
		}
	}
	minGap := duration / 0.01
	for i := 1; i < len(starts); i++ {
		gap := starts[i] - starts[i-1]
		if gap < minGap-1e-6 {
			t.Errorf("gap between start %d and %d = %v, want >= %v", i-1, i, gap, minGap)
		}
	}
}
