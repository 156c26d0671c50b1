package transport

import (
	"crypto/rand"
)

// activeConnIDLimit bounds both the local SCID pool and how many DCIDs
// we ask the peer to keep active (spec section 4.3: "fixed-size array
// (8 slots)"), grounded on lsquic's fixed cn_cces array.
const activeConnIDLimit = 8

// localCID is one of our source connection IDs, handed out to the peer
// via NEW_CONNECTION_ID.
type localCID struct {
	seq        uint64
	cid        []byte
	resetToken [16]byte
	used       bool // this CID has been observed as the packet destination
	retired    bool
}

// cidPool is the Local (SCID) pool: a fixed array of slots with a used
// bitmask and a monotonically increasing sequence number (spec 4.3).
type cidPool struct {
	slots     [activeConnIDLimit]localCID
	count     int // number of slots currently populated
	nextSeq   uint64
	cidLen    int
	rng       ioReader
	current   uint64 // seq of the local CID the peer is currently addressing
}

// ioReader is the minimal interface cidPool needs from a source of
// randomness; it is satisfied by crypto/rand.Reader or a config-supplied
// deterministic source (tests), matching the teacher's s.rand() pattern
// (conn.go) which prefers tls.Config.Rand when set.
type ioReader interface {
	Read(p []byte) (int, error)
}

func (p *cidPool) init(cidLen int, rng ioReader) {
	p.cidLen = cidLen
	if rng == nil {
		rng = rand.Reader
	}
	p.rng = rng
}

// registerInitial records cid as slot 0, sequence 0: the connection ID
// each side already chose before the handshake, as opposed to one
// minted later via mint() (spec 4.3 only describes minting; the first
// CID is fixed at connection creation, same as the teacher's plain
// s.scid field before this pool existed).
func (p *cidPool) registerInitial(cid []byte, token [16]byte) {
	p.slots[0] = localCID{seq: 0, cid: cid, resetToken: token, used: true}
	if p.count == 0 {
		p.count = 1
	}
	p.current = 0
	if p.nextSeq == 0 {
		p.nextSeq = 1
	}
}

// full reports whether all 8 slots are populated (spec invariant:
// "Number of locally-issued SCIDs in flight (minted - retired) <= 8").
func (p *cidPool) full() bool {
	return p.count >= len(p.slots)
}

// mint generates a new local CID and stateless-reset token and returns
// it, or nil if the pool is already full. The caller is responsible for
// emitting NEW_CONNECTION_ID and registering the CID with the engine's
// connection-ID map (spec 4.3: out of the core's scope, glue concern).
func (p *cidPool) mint() (*localCID, error) {
	if p.full() {
		return nil, nil
	}
	cid := make([]byte, p.cidLen)
	if _, err := p.rng.Read(cid); err != nil {
		return nil, err
	}
	var token [16]byte
	if _, err := p.rng.Read(token[:]); err != nil {
		return nil, err
	}
	for i := range p.slots {
		if p.slots[i].cid == nil {
			p.slots[i] = localCID{seq: p.nextSeq, cid: cid, resetToken: token}
			p.nextSeq++
			p.count++
			return &p.slots[i], nil
		}
	}
	return nil, nil
}

func (p *cidPool) find(cid []byte) *localCID {
	for i := range p.slots {
		if p.slots[i].cid != nil && bytesEqual(p.slots[i].cid, cid) {
			return &p.slots[i]
		}
	}
	return nil
}

// retireSeq frees the slot with the given sequence number.
func (p *cidPool) retireSeq(seq uint64) {
	for i := range p.slots {
		if p.slots[i].cid != nil && p.slots[i].seq == seq {
			p.slots[i] = localCID{}
			p.count--
			return
		}
	}
}

// unusedAlternate returns a populated slot other than currentSeq,
// confirming another local CID is available to stay on before the one
// bound to currentSeq is given up. Used to guard the local half of a
// CID switch (spec 4.3, "DCID switch"): when the peer starts addressing
// a different one of our CIDs, this picks the replacement for the old
// current slot that is about to be freed.
func (p *cidPool) unusedAlternate(currentSeq uint64) *localCID {
	for i := range p.slots {
		if p.slots[i].cid != nil && p.slots[i].seq != currentSeq {
			return &p.slots[i]
		}
	}
	return nil
}

// remoteCID is one DCID the peer has told us about via NEW_CONNECTION_ID.
type remoteCID struct {
	seq        uint64
	cid        []byte
	resetToken [16]byte
	valid      bool
}

// dcidPool is the Remote (DCID) pool (spec 4.3): a small array keyed by
// sequence number, plus a FIFO of pending RETIRE_CONNECTION_ID frames.
type dcidPool struct {
	entries  []remoteCID
	current  uint64 // seq of the DCID currently in use
	retireFIFO []uint64
	highestSeq uint64
	seenSeq    bool
}

// registerInitial records the peer's first connection ID (learned from
// an Initial packet's SCID or a Retry, not from NEW_CONNECTION_ID) as
// sequence 0, replacing any prior sequence-0 entry — the DCID changes
// at most twice before the handshake settles (once on Retry, once when
// the server's real SCID is learned) and each replaces the last.
func (p *dcidPool) registerInitial(cid []byte) {
	for i := range p.entries {
		if p.entries[i].seq == 0 {
			p.entries[i] = remoteCID{seq: 0, cid: cid, valid: true}
			p.current = 0
			return
		}
	}
	p.entries = append(p.entries, remoteCID{seq: 0, cid: cid, valid: true})
	p.current = 0
	p.seenSeq = true
}

// insert records a peer-advertised DCID. It is a protocol violation if
// the same sequence number arrives bound to a different CID, or if the
// same CID arrives under a different sequence number (spec 4.5
// NEW_CONNECTION_ID handling).
func (p *dcidPool) insert(seq uint64, cid []byte, token [16]byte) error {
	for i := range p.entries {
		e := &p.entries[i]
		if e.seq == seq {
			if !bytesEqual(e.cid, cid) {
				return newError(ProtocolViolation, "new_connection_id seq reused with different cid")
			}
			return nil
		}
		if bytesEqual(e.cid, cid) {
			return newError(ProtocolViolation, "new_connection_id cid reused with different seq")
		}
	}
	p.entries = append(p.entries, remoteCID{seq: seq, cid: cid, resetToken: token, valid: true})
	if !p.seenSeq || seq > p.highestSeq {
		p.highestSeq = seq
		p.seenSeq = true
	}
	return nil
}

func (p *dcidPool) get(seq uint64) *remoteCID {
	for i := range p.entries {
		if p.entries[i].seq == seq && p.entries[i].valid {
			return &p.entries[i]
		}
	}
	return nil
}

// retire enqueues seq for a RETIRE_CONNECTION_ID frame and removes it
// from the active set (spec 4.3: "RETIRE_CONNECTION_ID enqueues the
// element onto a FIFO of pending retirements").
func (p *dcidPool) retire(seq uint64) {
	for i := range p.entries {
		if p.entries[i].seq == seq && p.entries[i].valid {
			p.entries[i].valid = false
			p.retireFIFO = append(p.retireFIFO, seq)
			return
		}
	}
}

// pickAlternate returns an active DCID entry other than current, or nil
// if none is available (spec 4.3: "switching is suppressed when both
// peers would oscillate (no pool entry available)").
func (p *dcidPool) pickAlternate(current uint64) *remoteCID {
	for i := range p.entries {
		if p.entries[i].valid && p.entries[i].seq != current {
			return &p.entries[i]
		}
	}
	return nil
}

// drainRetireFIFO pops one pending sequence number to emit a
// RETIRE_CONNECTION_ID frame for, or ok=false if the FIFO is empty (spec
// 4.6 step 6d: "while space permits").
func (p *dcidPool) drainRetireFIFO() (seq uint64, ok bool) {
	if len(p.retireFIFO) == 0 {
		return 0, false
	}
	seq = p.retireFIFO[0]
	p.retireFIFO = p.retireFIFO[1:]
	return seq, true
}

func (p *dcidPool) pendingRetire() bool {
	return len(p.retireFIFO) > 0
}

// pushFrontRetire puts seq back at the head of the FIFO; used when a
// drained retirement didn't fit in the packet being assembled.
func (p *dcidPool) pushFrontRetire(seq uint64) {
	p.retireFIFO = append([]uint64{seq}, p.retireFIFO...)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
