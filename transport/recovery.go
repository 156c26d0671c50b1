package transport

import (
	"time"
)

// outgoingPacket is one packet handed to the loss-recovery/send
// controller collaborator (spec section 4.4): a space, a number, the
// frames it carries, the time it was sent, and its size.
type outgoingPacket struct {
	packetNumber uint64
	timeSent     time.Time
	size         uint64
	ackEliciting bool
	inFlight     bool
	frames       []frame
}

func newOutgoingPacket(pn uint64, now time.Time) *outgoingPacket {
	return &outgoingPacket{packetNumber: pn, timeSent: now}
}

func (op *outgoingPacket) addFrame(f frame) {
	op.frames = append(op.frames, f)
	if isFrameAckElicitingFrame(f) {
		op.ackEliciting = true
		op.inFlight = true
	}
}

func (op *outgoingPacket) String() string {
	return sprint("pn=", op.packetNumber, " frames=", len(op.frames), " size=", op.size)
}

func isFrameAckElicitingFrame(f frame) bool {
	switch f.(type) {
	case *ackFrame, *paddingFrame, *connectionCloseFrame:
		return false
	default:
		return true
	}
}

const (
	initialRTT       = 333 * time.Millisecond
	packetThreshold  = 3
	timeThresholdNum = 9
	timeThresholdDen = 8
	maxPTOBackoff    = 16
	initialWindow    = 10 * 1200 // bytes, RFC 9002 appendix B default
	minimumWindow    = 2 * 1200
)

// lossRecovery is the Send Controller collaborator (spec section 4.4):
// outbound packet bookkeeping, pacing, congestion-window gating, and
// retransmission. Congestion control algorithm choice and RTT estimator
// refinement are explicitly out of scope (spec section 1); this is the
// standard RFC 9002 appendix A/B reference algorithm, kept in one file
// since it is a single cohesive collaborator.
type lossRecovery struct {
	unacked     [packetSpaceCount]map[uint64]*outgoingPacket
	lost        [packetSpaceCount][]frame
	pendingAcked [packetSpaceCount][]frame

	largestAckedPacket [packetSpaceCount]uint64
	hasLargestAcked    [packetSpaceCount]bool

	largestSent    [packetSpaceCount]uint64
	hasLargestSent [packetSpaceCount]bool

	// maxAckPacketNum is the highest packet number seen carrying an ACK
	// frame already processed in this space, for duplicate detection.
	maxAckPacketNum    [packetSpaceCount]uint64
	hasMaxAckPacketNum [packetSpaceCount]bool

	lastAckElicitingSent [packetSpaceCount]time.Time
	lossTime             [packetSpaceCount]time.Time

	minRTT      time.Duration
	latestRTT   time.Duration
	smoothedRTT time.Duration
	rttVar      time.Duration
	rttSampled  bool

	maxAckDelay time.Duration

	ptoCount int
	probes   int // number of PTO probe packets still to send

	bytesInFlight    uint64
	congestionWindow uint64
	slowStartThresh  uint64
	recoveryStart    time.Time
	inRecovery       bool

	lossDetectionTimer time.Time

	// pacing
	pacingRate  float64 // bytes per second; 0 disables pacing
	nextSendAt  time.Time
}

func (r *lossRecovery) init(now time.Time) {
	for i := range r.unacked {
		r.unacked[i] = make(map[uint64]*outgoingPacket)
	}
	r.smoothedRTT = initialRTT
	r.rttVar = initialRTT / 2
	r.maxAckDelay = 25 * time.Millisecond
	r.congestionWindow = initialWindow
	r.slowStartThresh = ^uint64(0)
}

func (r *lossRecovery) onPacketSent(op *outgoingPacket, space packetSpace) {
	r.unacked[space][op.packetNumber] = op
	if !r.hasLargestSent[space] || op.packetNumber > r.largestSent[space] {
		r.largestSent[space] = op.packetNumber
		r.hasLargestSent[space] = true
	}
	if op.ackEliciting {
		r.lastAckElicitingSent[space] = op.timeSent
	}
	if op.inFlight {
		op.size = maxUint64(op.size, 1)
		r.bytesInFlight += op.size
	}
	r.setLossDetectionTimer(op.timeSent)
}

// canSend reports whether the congestion window currently allows more
// bytes in flight (spec 4.4 can_send()).
func (r *lossRecovery) canSend() bool {
	return r.bytesInFlight < r.congestionWindow
}

// pacerReadyAt returns the time at which the next packet may be sent
// under the pacer (spec 4.4 pacer_ready_at()).
func (r *lossRecovery) pacerReadyAt() time.Time {
	return r.nextSendAt
}

func (r *lossRecovery) onPacketPaced(now time.Time, size int) {
	if r.pacingRate <= 0 || r.smoothedRTT <= 0 {
		return
	}
	interval := time.Duration(float64(size) / r.pacingRate * float64(time.Second))
	if r.nextSendAt.Before(now) {
		r.nextSendAt = now
	}
	r.nextSendAt = r.nextSendAt.Add(interval)
}

// onAckReceived processes a freshly-decoded ACK (spec 4.4 on_ack()). It
// updates the RTT estimate from the largest newly-acked packet, frees
// acked packets into the caller's drain via drainAcked, and detects loss.
//
// pn is the packet number of the packet carrying this ACK frame, used to
// reject a duplicate: one whose carrying packet number is no higher than
// that of an ACK already processed in this space. acked's largest value
// must be a packet number this side actually sent; one beyond the
// largest ever sent is rejected as invalid.
func (r *lossRecovery) onAckReceived(acked *rangeSet, ackDelay time.Duration, space packetSpace, pn uint64, now time.Time) error {
	if r.hasMaxAckPacketNum[space] && pn <= r.maxAckPacketNum[space] {
		return newError(DuplicatedInfo, sprint("ack carried by packet ", pn, " space ", space))
	}
	r.maxAckPacketNum[space] = pn
	r.hasMaxAckPacketNum[space] = true

	if acked == nil || acked.empty() {
		return nil
	}
	largest := acked.largest()
	if r.hasLargestSent[space] && largest > r.largestSent[space] {
		return newError(InvalidAck, sprint("largest acked ", largest, " exceeds largest sent in space ", space))
	}
	sent, ok := r.unacked[space][largest]
	if !ok && (!r.hasLargestAcked[space] || largest > r.largestAckedPacket[space]) {
		return newError(InvalidAck, sprint("acked packet ", largest, " not in unacked set, space ", space))
	}
	if ok {
		if !r.hasLargestAcked[space] || largest > r.largestAckedPacket[space] {
			r.sampleRTT(now.Sub(sent.timeSent), ackDelay)
		}
	}
	if !r.hasLargestAcked[space] || largest > r.largestAckedPacket[space] {
		r.largestAckedPacket[space] = largest
		r.hasLargestAcked[space] = true
	}
	for pn, op := range r.unacked[space] {
		if acked.contains(pn) {
			r.ackPacket(op, space, now)
			delete(r.unacked[space], pn)
		}
	}
	r.detectLoss(space, now)
	r.ptoCount = 0
	r.setLossDetectionTimer(now)
	return nil
}

func (r *lossRecovery) ackPacket(op *outgoingPacket, space packetSpace, now time.Time) {
	r.pendingAcked[space] = append(r.pendingAcked[space], op.frames...)
	if op.inFlight {
		if op.size <= r.bytesInFlight {
			r.bytesInFlight -= op.size
		} else {
			r.bytesInFlight = 0
		}
		if r.congestionWindow > 0 {
			r.congestionWindow += uint64(float64(op.size) * (1200.0 / float64(r.congestionWindow)))
		}
		if r.congestionWindow < minimumWindow {
			r.congestionWindow = minimumWindow
		}
	}
}

func (r *lossRecovery) onCongestionEvent(loss bool, sentTime, now time.Time) {
	if !loss {
		return
	}
	if r.inRecovery && sentTime.Before(r.recoveryStart) {
		return
	}
	r.inRecovery = true
	r.recoveryStart = now
	r.congestionWindow = maxUint64(r.congestionWindow/2, minimumWindow)
	r.slowStartThresh = r.congestionWindow
}

func (r *lossRecovery) sampleRTT(sample, ackDelay time.Duration) {
	r.latestRTT = sample
	if !r.rttSampled {
		r.minRTT = sample
		r.smoothedRTT = sample
		r.rttVar = sample / 2
		r.rttSampled = true
		return
	}
	if sample < r.minRTT {
		r.minRTT = sample
	}
	adjusted := sample
	if ackDelay < r.maxAckDelay && sample > r.minRTT+ackDelay {
		adjusted = sample - ackDelay
	}
	rttDiff := r.smoothedRTT - adjusted
	if rttDiff < 0 {
		rttDiff = -rttDiff
	}
	r.rttVar = (3*r.rttVar + rttDiff) / 4
	r.smoothedRTT = (7*r.smoothedRTT + adjusted) / 8
}

// drainAcked calls fn for every frame of every packet that has just been
// freed by onAckReceived's bookkeeping (spec 4.6 processAckedPackets).
// Frames are collected before clearing so the caller can react (e.g.
// mark stream bytes acked) after the RTT/cwnd bookkeeping above.
func (r *lossRecovery) drainAcked(space packetSpace, fn func(frame)) {
	frames := r.pendingAcked[space]
	r.pendingAcked[space] = nil
	for _, f := range frames {
		fn(f)
	}
}

// detectLoss marks packets below packetThreshold or older than the time
// threshold as lost (RFC 9002 section 6.1), moving their frames to the
// lost queue for retransmission via drainLost.
func (r *lossRecovery) detectLoss(space packetSpace, now time.Time) {
	if !r.hasLargestAcked[space] {
		return
	}
	lossDelay := time.Duration(float64(maxDuration(r.latestRTT, r.smoothedRTT)) * timeThresholdNum / timeThresholdDen)
	if lossDelay < time.Millisecond {
		lossDelay = time.Millisecond
	}
	r.lossTime[space] = time.Time{}
	largest := r.largestAckedPacket[space]
	for pn, op := range r.unacked[space] {
		if pn > largest {
			continue
		}
		lost := largest-pn >= packetThreshold
		if !lost && !op.timeSent.IsZero() && now.Sub(op.timeSent) > lossDelay {
			lost = true
		}
		if lost {
			r.lost[space] = append(r.lost[space], op.frames...)
			if op.inFlight {
				if op.size <= r.bytesInFlight {
					r.bytesInFlight -= op.size
				} else {
					r.bytesInFlight = 0
				}
				r.onCongestionEvent(true, op.timeSent, now)
			}
			delete(r.unacked[space], pn)
		} else if !op.timeSent.IsZero() {
			lossDeadline := op.timeSent.Add(lossDelay)
			if r.lossTime[space].IsZero() || lossDeadline.Before(r.lossTime[space]) {
				r.lossTime[space] = lossDeadline
			}
		}
	}
}

// drainLost calls fn for every frame of packets detected as lost, and
// clears the queue (spec 4.6 processLostPackets).
func (r *lossRecovery) drainLost(space packetSpace, fn func(frame)) {
	for _, f := range r.lost[space] {
		fn(f)
	}
	r.lost[space] = nil
}

// probeTimeout computes the current PTO duration (RFC 9002 section 6.2.1).
func (r *lossRecovery) probeTimeout() time.Duration {
	pto := r.smoothedRTT + maxDuration(4*r.rttVar, time.Millisecond) + r.maxAckDelay
	for i := 0; i < r.ptoCount && i < maxPTOBackoff; i++ {
		pto *= 2
	}
	return pto
}

// onLossDetectionTimeout fires either the time-threshold loss detector
// or a PTO probe, per RFC 9002 section 6.2.
func (r *lossRecovery) onLossDetectionTimeout(now time.Time) {
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		if !r.lossTime[space].IsZero() && !now.Before(r.lossTime[space]) {
			r.detectLoss(space, now)
			r.setLossDetectionTimer(now)
			return
		}
	}
	r.ptoCount++
	r.probes += 2
	r.setLossDetectionTimer(now)
}

func (r *lossRecovery) setLossDetectionTimer(now time.Time) {
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		if !r.lossTime[space].IsZero() {
			r.lossDetectionTimer = r.lossTime[space]
			return
		}
	}
	hasInFlight := false
	for space := packetSpaceInitial; space < packetSpaceCount; space++ {
		if len(r.unacked[space]) > 0 {
			hasInFlight = true
			break
		}
	}
	if !hasInFlight {
		r.lossDetectionTimer = time.Time{}
		return
	}
	var last time.Time
	for _, t := range r.lastAckElicitingSent {
		if t.After(last) {
			last = t
		}
	}
	if last.IsZero() {
		last = now
	}
	r.lossDetectionTimer = last.Add(r.probeTimeout())
}

// dropUnackedData discards all in-flight state for a space whose keys
// have been dropped (spec 4.6 "Ignoring Initial space").
func (r *lossRecovery) dropUnackedData(space packetSpace) {
	r.unacked[space] = make(map[uint64]*outgoingPacket)
	r.lost[space] = nil
	r.lossTime[space] = time.Time{}
	r.pendingAcked[space] = nil
}

func maxUint64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
