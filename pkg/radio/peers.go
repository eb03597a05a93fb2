package radio

import "sync"

// PeerTable keeps the registered destinations of a radio.
type PeerTable struct {
	peers map[Addr]struct{}
	lock  sync.RWMutex
}

// Add registers a peer.
func (t *PeerTable) Add(addr Addr) {
	t.lock.Lock()
	if t.peers == nil {
		t.peers = make(map[Addr]struct{})
	}
	t.peers[addr] = struct{}{}
	t.lock.Unlock()
}

// Has checks if a peer is registered.
func (t *PeerTable) Has(addr Addr) bool {
	t.lock.RLock()
	defer t.lock.RUnlock()
	_, ok := t.peers[addr]
	return ok
}

// Check validates a destination and payload before transmission.
func (t *PeerTable) Check(dst Addr, payload []byte) error {
	if err := CheckPayload(payload); err != nil {
		return err
	}
	if !t.Has(dst) {
		return ErrUnknownPeer
	}
	return nil
}
