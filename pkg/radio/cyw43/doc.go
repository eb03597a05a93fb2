// Package cyw43 runs a node on the CYW43439 Wi-Fi chip of a Raspberry Pi
// Pico W / Pico 2 W (TinyGo, build tags rp2040 or rp2350).
//
// The chip has no ESP-NOW firmware. Frames are carried in Ethernet frames
// with EtherType 0x88B5 over the joined network, addressed with the
// station addresses, so nodes on the same access point see each other the
// same way ESP-NOW peers do.
package cyw43

// EtherType tags ESP-NOW style frames (IEEE local experimental).
const EtherType = 0x88b5
