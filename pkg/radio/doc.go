// Package radio defines the radio handle used by a node.
package radio

// The radio is a connectionless peer-to-peer link in the style of ESP-NOW:
// frames are addressed to a 6-byte station address or to the broadcast
// address, and each transmission yields an outcome reported by the
// hardware. There is no framing, sequencing or retransmission on top of
// what the peripheral does.
//
// A Handle is owned by exactly one component for the lifetime of the
// process. Concurrent senders must go through pkg/sender.
