package simcore

import (
	"container/heap"
	"math"
	"math/rand"
)

// Simulator is the discrete-event kernel: a single-threaded cooperative
// scheduler over Channel/DutyCycleManager/Node/Gateway/NetworkServer.
// Every source of randomness flows through one seeded RNG, so two
// Simulators built from the same Config produce byte-identical runs.
type Simulator struct {
	cfg Config
	rng *rand.Rand

	channel  *Channel
	duty     *DutyCycleManager
	server   *NetworkServer
	nodes    []*Node
	gateways []*Gateway

	events eventHeap
	nextID int

	now      float64
	stopped  bool
	capped   bool // true once the global PacketsToSend cap has been reached
	stopTime float64
	hasStop  bool

	records   []EventRecord
	recordIdx map[int]int // event_id -> index into records, for in-place End updates
	pending   map[int]*pendingTx
	observer  Observer

	packetsSent          int
	packetsDelivered     int
	packetsLostCollision int
	packetsLostNoSignal  int
	totalDelay           float64
	deliveredCount       int
}

// pendingTx carries the per-event_id bookkeeping a Start event opens
// and the matching End event closes: the node's snapshot at start time,
// whether any gateway heard the frame at all (distinguishing
// NoCoverage from CollisionLoss), and the RSSI seen by whichever
// gateway ends up reporting delivery.
type pendingTx struct {
	NodeID         int
	InitialX       float64
	InitialY       float64
	InitialSF      int
	InitialTxPower float64
	StartTime      float64
	Heard          bool
	FrameEnergyJ   float64
	GatewayRSSI    map[int]float64
}

// NewSimulator validates cfg and builds a ready-to-run Simulator, with
// its first Start (and, if enabled, Mobility) events already scheduled.
func NewSimulator(cfg Config) (*Simulator, error) {
	if cfg.NumNodes <= 0 && len(cfg.Nodes) == 0 {
		return nil, configErr("num_nodes", "must be positive or Nodes must be supplied")
	}
	if cfg.NumGateways <= 0 && len(cfg.Gateways) == 0 {
		return nil, configErr("num_gateways", "must be positive or Gateways must be supplied")
	}
	if cfg.PacketIntervalS <= 0 {
		return nil, configErr("packet_interval_s", "must be positive")
	}
	if cfg.Mode != ModeRandom && cfg.Mode != ModePeriodic {
		return nil, configErr("mode", "must be ModeRandom or ModePeriodic")
	}
	if cfg.AreaSizeM <= 0 && (len(cfg.Nodes) == 0 || len(cfg.Gateways) == 0) {
		return nil, configErr("area_size_m", "must be positive when node/gateway positions are not fully explicit")
	}

	rng := NewRNG(cfg.Seed)

	freq := cfg.FrequencyHz
	if freq == 0 {
		freq = defaultFrequencyHz
	}
	plExp := cfg.PathLossExp
	if plExp == 0 {
		plExp = defaultPathLossExp
	}
	shadow := defaultShadowingStdDB
	if cfg.HasShadowingStdDB {
		shadow = cfg.ShadowingStdDB
	}
	channel := NewChannel(freq, plExp, shadow, rng)

	duty, err := NewDutyCycleManager(dutyCycleOrDefault(cfg.DutyCycle))
	if err != nil {
		return nil, err
	}

	nodes := buildNodes(cfg, rng)
	gateways := buildGateways(cfg, rng)

	s := &Simulator{
		cfg:       cfg,
		rng:       rng,
		channel:   channel,
		duty:      duty,
		nodes:     nodes,
		gateways:  gateways,
		recordIdx: make(map[int]int),
		pending:   make(map[int]*pendingTx),
	}
	s.server = NewNetworkServer(cfg.ServerADREnabled, s.nodes)

	if cfg.SimulationDurationS > 0 {
		s.hasStop = true
		s.stopTime = cfg.SimulationDurationS
	}

	for _, n := range s.nodes {
		s.scheduleNextStart(n, 0)
	}
	if cfg.MobilityEnabled {
		for _, n := range s.nodes {
			s.scheduleMobility(n, cfg.MobilityIntervalS)
		}
	}

	return s, nil
}

func dutyCycleOrDefault(d float64) float64 {
	if d == 0 {
		return 0.01
	}
	return d
}

func buildNodes(cfg Config, rng *rand.Rand) []*Node {
	if len(cfg.Nodes) > 0 {
		nodes := make([]*Node, len(cfg.Nodes))
		for i, nc := range cfg.Nodes {
			nodes[i] = NewNode(i, nc.X, nc.Y, nc.SF, nc.TxPower)
		}
		return nodes
	}
	nodes := make([]*Node, cfg.NumNodes)
	for i := 0; i < cfg.NumNodes; i++ {
		x := rng.Float64() * cfg.AreaSizeM
		y := rng.Float64() * cfg.AreaSizeM
		nodes[i] = NewNode(i, x, y, 7, 14)
	}
	return nodes
}

func buildGateways(cfg Config, rng *rand.Rand) []*Gateway {
	if len(cfg.Gateways) > 0 {
		gws := make([]*Gateway, len(cfg.Gateways))
		for i, gc := range cfg.Gateways {
			gws[i] = NewGateway(i, gc.X, gc.Y)
		}
		return gws
	}
	gws := make([]*Gateway, cfg.NumGateways)
	for i := 0; i < cfg.NumGateways; i++ {
		x := rng.Float64() * cfg.AreaSizeM
		y := rng.Float64() * cfg.AreaSizeM
		gws[i] = NewGateway(i, x, y)
	}
	return gws
}

func (s *Simulator) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

// scheduleNextStart pushes node's next transmission Start event one
// interval after earliest, honoring the duty-cycle floor. ModeRandom draws an
// exponential inter-arrival time with mean PacketIntervalS (matching
// the semantics of numpy's random.exponential); ModePeriodic uses a
// fixed interval.
func (s *Simulator) scheduleNextStart(n *Node, earliest float64) {
	var interval float64
	switch s.cfg.Mode {
	case ModePeriodic:
		interval = s.cfg.PacketIntervalS
	default:
		interval = s.rng.ExpFloat64() * s.cfg.PacketIntervalS
	}
	t := s.duty.Enforce(n.ID, earliest+interval)
	id := s.allocID()
	heap.Push(&s.events, queuedEvent{Time: t, EventID: id, NodeID: n.ID, Kind: eventStart})
}

func (s *Simulator) scheduleMobility(n *Node, interval float64) {
	id := s.allocID()
	heap.Push(&s.events, queuedEvent{Time: s.now + interval, EventID: id, NodeID: n.ID, Kind: eventMobility})
}

// Step pops and processes the single earliest-ordered event, returning
// false once the queue is exhausted (QueueExhausted is not an error)
// or the simulator has been stopped. Once the global PacketsToSend cap
// is reached, every future Start/Mobility event is purged lazily here
// rather than rebuilding the heap up front; End events still resolve
// so in-flight transmissions finish normally.
func (s *Simulator) Step() bool {
	if s.stopped {
		return false
	}
	for {
		if s.events.Len() == 0 {
			return false
		}
		ev := heap.Pop(&s.events).(queuedEvent)
		if s.hasStop && ev.Time > s.stopTime {
			s.now = s.stopTime
			return false
		}
		s.now = ev.Time

		if s.capped && ev.Kind != eventEnd {
			continue
		}

		switch ev.Kind {
		case eventStart:
			s.handleStart(ev)
		case eventEnd:
			s.handleEnd(ev)
		case eventMobility:
			s.handleMobility(ev)
		}
		return true
	}
}

func (s *Simulator) node(id int) *Node {
	if id >= 0 && id < len(s.nodes) && s.nodes[id].ID == id {
		return s.nodes[id]
	}
	return nil
}

// handleStart begins a transmission: computes airtime once for the
// node's current SF, marks the node busy, notifies every gateway in
// range via the capture-effect collision model, and schedules the
// matching End event reusing the same event_id (no new event_id is
// allocated for the pairing End, mirroring the reference kernel).
func (s *Simulator) handleStart(ev queuedEvent) {
	n := s.node(ev.NodeID)
	if n == nil {
		return
	}
	if !s.duty.CanTransmit(n.ID, s.now) {
		s.scheduleNextStart(n, s.now)
		return
	}

	duration := s.channel.Airtime(n.SF)
	n.InTransmission = true
	n.CurrentEndTime = s.now + duration
	n.HasCurrentEndTime = true
	n.Sent++
	s.packetsSent++

	frameEnergy := duration * txPowerToWatts(n.TxPower)
	n.AddEnergy(frameEnergy)
	s.duty.UpdateAfterTx(n.ID, s.now, duration)

	pend := &pendingTx{
		NodeID:         n.ID,
		InitialX:       n.X,
		InitialY:       n.Y,
		InitialSF:      n.SF,
		InitialTxPower: n.TxPower,
		StartTime:      s.now,
		FrameEnergyJ:   frameEnergy,
		GatewayRSSI:    make(map[int]float64),
	}

	bestSNR := math.Inf(-1)
	hasSNR := false
	for _, gw := range s.gateways {
		dist := n.DistanceTo(gw.X, gw.Y)
		rssi := s.channel.ComputeRSSI(n.TxPower, dist)
		if rssi < s.channel.SensitivityFor(n.SF) {
			continue
		}
		pend.Heard = true
		pend.GatewayRSSI[gw.ID] = rssi
		if snr := rssi - s.channel.SensitivityFor(n.SF) + requiredSNR[n.SF]; snr > bestSNR {
			bestSNR = snr
			hasSNR = true
		}
		gw.StartReception(ev.EventID, n.ID, n.SF, rssi, n.CurrentEndTime, CaptureThresholdDB, s.now)
	}
	n.snrAtStart, n.hasSNRAtStart = bestSNR, hasSNR
	s.pending[ev.EventID] = pend

	rec := EventRecord{
		EventID:        ev.EventID,
		NodeID:         n.ID,
		InitialX:       n.X,
		InitialY:       n.Y,
		InitialSF:      n.SF,
		InitialTxPower: n.TxPower,
		StartTime:      s.now,
		Result:         ResultNone,
	}
	s.recordIdx[ev.EventID] = len(s.records)
	s.records = append(s.records, rec)

	heap.Push(&s.events, queuedEvent{Time: n.CurrentEndTime, EventID: ev.EventID, NodeID: n.ID, Kind: eventEnd})
	if cap := s.cfg.PacketsToSend; cap > 0 && s.packetsSent >= cap {
		s.capped = true
	}
}

// handleEnd finalizes a transmission: every gateway that was still
// tracking the frame reports delivery to the network server (which
// deduplicates across gateways), the node's ADR ring buffer is updated
// from the outcome when node-side ADR is enabled, the node is freed to
// transmit again, and its next Start is scheduled unless the
// PacketsToSend cap has been reached.
func (s *Simulator) handleEnd(ev queuedEvent) {
	n := s.node(ev.NodeID)
	if n == nil {
		return
	}
	pend := s.pending[ev.EventID]
	delete(s.pending, ev.EventID)

	for _, gw := range s.gateways {
		gw.EndReception(ev.EventID, n.ID, s.server)
	}
	delivered := s.server.ReceivedEvents[ev.EventID]

	var result ResultKind
	var gwID int
	hasGW := false
	var rssi float64
	hasRSSI := false

	if delivered {
		s.packetsDelivered++
		n.Success++
		result = ResultSuccess
		if id, ok := s.server.EventGateway[ev.EventID]; ok {
			gwID, hasGW = id, true
			if pend != nil {
				if r, ok := pend.GatewayRSSI[id]; ok {
					rssi, hasRSSI = r, true
				}
			}
		}
		if pend != nil {
			delay := s.now - pend.StartTime
			s.totalDelay += delay
			s.deliveredCount++
		}
	} else if pend != nil && pend.Heard {
		s.packetsLostCollision++
		n.Collision++
		result = ResultCollisionLoss
	} else {
		s.packetsLostNoSignal++
		result = ResultNoCoverage
	}

	if s.cfg.NodeADREnabled {
		n.recordTransmission(s.cfg.ServerADREnabled, delivered, n.snrAtStart, n.hasSNRAtStart)
	}
	if hasRSSI {
		n.LastRSSI, n.HasLastRSSI = rssi, true
	}

	n.InTransmission = false
	n.HasCurrentEndTime = false

	if idx, ok := s.recordIdx[ev.EventID]; ok {
		rec := &s.records[idx]
		rec.FinalX = n.X
		rec.FinalY = n.Y
		rec.FinalSF = n.SF
		rec.FinalTxPower = n.TxPower
		rec.EndTime = s.now
		rec.HasEndTime = true
		if pend != nil {
			rec.EnergyJ = pend.FrameEnergyJ
		}
		rec.Result = result
		if hasGW {
			rec.GatewayID = gwID
			rec.HasGatewayID = true
		}
		if s.observer != nil {
			s.observer.OnEvent(*rec)
		}
		delete(s.recordIdx, ev.EventID)
	}

	if s.cfg.PacketsToSend == 0 || s.packetsSent < s.cfg.PacketsToSend {
		s.scheduleNextStart(n, s.now)
	}
}

// handleMobility applies one tick of the random-teleport mobility
// model: a node mid-transmission cannot move, so its tick is deferred
// to the moment its current transmission ends; otherwise its position
// is redrawn independently and uniformly over the simulation area.
func (s *Simulator) handleMobility(ev queuedEvent) {
	n := s.node(ev.NodeID)
	if n == nil {
		return
	}

	if n.InTransmission {
		heap.Push(&s.events, queuedEvent{Time: n.CurrentEndTime, EventID: ev.EventID, NodeID: n.ID, Kind: eventMobility})
		return
	}

	oldX, oldY := n.X, n.Y
	n.X = s.rng.Float64() * s.cfg.AreaSizeM
	n.Y = s.rng.Float64() * s.cfg.AreaSizeM

	rec := EventRecord{
		EventID:   ev.EventID,
		NodeID:    n.ID,
		InitialX:  oldX,
		InitialY:  oldY,
		FinalX:    n.X,
		FinalY:    n.Y,
		StartTime: s.now,
		Result:    ResultMobility,
	}
	s.records = append(s.records, rec)
	if s.observer != nil {
		s.observer.OnEvent(rec)
	}

	s.scheduleMobility(n, s.cfg.MobilityIntervalS)
}

// Run steps the simulator forward until exhaustion, stop, or maxSteps
// consecutive steps have run (maxSteps<=0 means unbounded).
func (s *Simulator) Run(maxSteps int) int {
	count := 0
	for maxSteps <= 0 || count < maxSteps {
		if !s.Step() {
			break
		}
		count++
	}
	return count
}

// Stop halts the simulator; subsequent Step calls return false
// immediately. It is idempotent and safe to call mid-run.
func (s *Simulator) Stop() {
	s.stopped = true
}

// SetObserver installs a callback invoked for every terminal event
// processed from this point forward.
func (s *Simulator) SetObserver(o Observer) {
	s.observer = o
}

// Metrics returns an aggregate snapshot of the run so far.
func (s *Simulator) Metrics() Metrics {
	pdr := 0.0
	if s.packetsSent > 0 {
		pdr = float64(s.packetsDelivered) / float64(s.packetsSent)
	}
	avgDelay := 0.0
	if s.deliveredCount > 0 {
		avgDelay = s.totalDelay / float64(s.deliveredCount)
	}
	energy := 0.0
	sfDist := map[int]int{7: 0, 8: 0, 9: 0, 10: 0, 11: 0, 12: 0}
	for _, n := range s.nodes {
		energy += n.EnergyConsumedJ
		sfDist[n.SF]++
	}
	return Metrics{
		PacketsSent:          s.packetsSent,
		PacketsDelivered:     s.packetsDelivered,
		PacketsLostCollision: s.packetsLostCollision,
		PacketsLostNoSignal:  s.packetsLostNoSignal,
		PDR:                  pdr,
		Collisions:           s.packetsLostCollision,
		EnergyJ:              energy,
		AvgDelayS:            avgDelay,
		SFDistribution:       sfDist,
	}
}

// EventRecords returns the event log so far — the Go analogue of
// get_events_dataframe(): one row per transmission, added when it
// starts (Result stays ResultNone until its End is processed), and one
// row per mobility tick, in the order they were started.
func (s *Simulator) EventRecords() []EventRecord {
	return s.records
}

// txPowerToWatts converts a TX power in dBm to watts, used only for
// the node-side energy-consumption counter.
func txPowerToWatts(dBm float64) float64 {
	return math.Pow(10, dBm/10) / 1000
}
