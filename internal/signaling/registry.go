package signaling

// Conn is one live realtime channel instance. The transport layer owns
// the connection; the coordinator only references it.
type Conn interface {
	ID() string
	Send(event Event) error
	Close()
}

// registry holds the identity <-> connection mapping. The two maps are
// mutual inverses at all times: an identity appears in byIdentity iff
// its connection ID appears in byConn pointing back to it.
//
// Not safe for concurrent use; every method runs under the
// Coordinator's mutex.
type registry struct {
	byIdentity map[string]Conn
	byConn     map[string]string
}

func newRegistry() *registry {
	return &registry{
		byIdentity: make(map[string]Conn),
		byConn:     make(map[string]string),
	}
}

// install maps identity to conn and returns the previous connection for
// that identity, if a different one was live. The evicted connection's
// reverse mapping is removed here; closing it is the caller's job.
func (r *registry) install(identity string, conn Conn) (evicted Conn) {
	if old := r.byIdentity[identity]; old != nil && old.ID() != conn.ID() {
		delete(r.byConn, old.ID())
		evicted = old
	}

	// A connection re-joining under a new identity must not leave its
	// old forward mapping behind.
	if prev, ok := r.byConn[conn.ID()]; ok && prev != identity {
		delete(r.byIdentity, prev)
	}

	r.byIdentity[identity] = conn
	r.byConn[conn.ID()] = identity
	return evicted
}

// removeConn drops both mappings for conn. Returns the identity it
// held, or "" when the connection was unmapped (e.g. already evicted).
func (r *registry) removeConn(conn Conn) string {
	identity, ok := r.byConn[conn.ID()]
	if !ok {
		return ""
	}
	delete(r.byConn, conn.ID())
	if cur := r.byIdentity[identity]; cur != nil && cur.ID() == conn.ID() {
		delete(r.byIdentity, identity)
	}
	return identity
}

func (r *registry) conn(identity string) Conn {
	return r.byIdentity[identity]
}

func (r *registry) identity(connID string) string {
	return r.byConn[connID]
}

func (r *registry) onlineCount() int {
	return len(r.byIdentity)
}
