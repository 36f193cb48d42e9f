package hyperate

import (
	"fmt"
	"sort"
	"sync"
)

// ChannelState is the membership state of a single channel name.
type ChannelState int

const (
	ChannelAbsent  ChannelState = iota // not joined and no request in flight
	ChannelJoining                     // phx_join sent, waiting for the reply
	ChannelJoined                      // join acknowledged
	ChannelLeaving                     // phx_leave sent, waiting for the reply
)

var channelStateNames = [...]string{
	ChannelAbsent:  "absent",
	ChannelJoining: "joining",
	ChannelJoined:  "joined",
	ChannelLeaving: "leaving",
}

func (s ChannelState) String() string {
	if int(s) >= 0 && int(s) < len(channelStateNames) {
		return channelStateNames[s]
	}
	return fmt.Sprintf("ChannelState(%d)", s)
}

// AckKind reports what an inbound ref acknowledges.
type AckKind int

const (
	AckUnknown AckKind = iota
	AckJoin
	AckLeave
)

func (k AckKind) String() string {
	switch k {
	case AckJoin:
		return "join"
	case AckLeave:
		return "leave"
	default:
		return "unknown"
	}
}

type memberEntry struct {
	state ChannelState
	ref   Ref    // set while joining or leaving
	seq   uint64 // order in which the entry reached its current state
}

// membership tracks channel state for one connection. A topic has at most one
// entry, so it can never be joining, joined and leaving at once, and at most
// one ref per topic is in flight.
type membership struct {
	mu     sync.Mutex
	next   refSource
	seq    uint64
	topics map[string]*memberEntry // topic → entry
	refs   map[Ref]string          // in-flight ref → topic
}

func newMembership(next refSource) *membership {
	if next == nil {
		next = randomRefSource
	}
	return &membership{
		next:   next,
		topics: make(map[string]*memberEntry),
		refs:   make(map[Ref]string),
	}
}

func (m *membership) nextSeq() uint64 {
	m.seq++
	return m.seq
}

func (m *membership) inFlightLocked(r Ref) bool {
	_, ok := m.refs[r]
	return ok
}

// join moves an absent topic to joining and returns the ref to send.
// It returns false when the topic already has an entry.
func (m *membership) join(topic string) (Ref, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.topics[topic]; exists {
		return 0, false
	}

	r := allocateRef(m.next, m.inFlightLocked)
	m.topics[topic] = &memberEntry{state: ChannelJoining, ref: r, seq: m.nextSeq()}
	m.refs[r] = topic
	return r, true
}

// leave moves a joined topic to leaving and returns the ref to send.
// A topic still joining is dropped locally and leave returns false, as it
// does for absent or already leaving topics.
func (m *membership) leave(topic string) (Ref, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.topics[topic]
	if !ok {
		return 0, false
	}

	switch e.state {
	case ChannelJoining:
		delete(m.refs, e.ref)
		delete(m.topics, topic)
		return 0, false
	case ChannelJoined:
		r := allocateRef(m.next, m.inFlightLocked)
		e.state = ChannelLeaving
		e.ref = r
		e.seq = m.nextSeq()
		m.refs[r] = topic
		return r, true
	default:
		return 0, false
	}
}

// lookup reports what ref acknowledges without changing any state.
func (m *membership) lookup(r Ref) AckKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupLocked(r)
}

func (m *membership) lookupLocked(r Ref) AckKind {
	topic, ok := m.refs[r]
	if !ok {
		return AckUnknown
	}
	switch m.topics[topic].state {
	case ChannelJoining:
		return AckJoin
	case ChannelLeaving:
		return AckLeave
	default:
		return AckUnknown
	}
}

// ack applies the server reply for r and returns the affected topic.
// Unknown refs leave the state untouched.
func (m *membership) ack(r Ref) (AckKind, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kind := m.lookupLocked(r)
	topic := m.refs[r]

	switch kind {
	case AckJoin:
		e := m.topics[topic]
		e.state = ChannelJoined
		e.ref = 0
		e.seq = m.nextSeq()
		delete(m.refs, r)
	case AckLeave:
		delete(m.refs, r)
		delete(m.topics, topic)
	default:
		return AckUnknown, ""
	}
	return kind, topic
}

// cancel rolls back the request that allocated r when it never reached the
// server: joining returns to absent and leaving returns to joined. The ref is
// freed, so a reply that arrives anyway is ignored. It reports whether r was
// in flight.
func (m *membership) cancel(r Ref) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	topic, ok := m.refs[r]
	if !ok {
		return false
	}
	delete(m.refs, r)

	e := m.topics[topic]
	switch e.state {
	case ChannelJoining:
		delete(m.topics, topic)
	case ChannelLeaving:
		e.state = ChannelJoined
		e.ref = 0
		e.seq = m.nextSeq()
	}
	return true
}

// state returns the current state of topic.
func (m *membership) state(topic string) ChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.topics[topic]; ok {
		return e.state
	}
	return ChannelAbsent
}

// joined returns the fully joined topics in the order they were acknowledged.
func (m *membership) joined() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collectLocked(ChannelJoined)
}

// rejoinSet returns joined topics followed by joining topics. Topics pending
// a leave are excluded.
func (m *membership) rejoinSet() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(m.collectLocked(ChannelJoined), m.collectLocked(ChannelJoining)...)
}

func (m *membership) collectLocked(state ChannelState) []string {
	var topics []string
	for topic, e := range m.topics {
		if e.state == state {
			topics = append(topics, topic)
		}
	}
	sort.Slice(topics, func(i, j int) bool {
		return m.topics[topics[i]].seq < m.topics[topics[j]].seq
	})
	return topics
}
