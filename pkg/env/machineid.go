// Package env provides the identity of the machine running a node.
package env

import (
	"crypto/sha256"

	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/espnow.go/pkg/radio"
)

// AppID scopes the protected machine ID.
const AppID = "espnow.go"

// MachineID retrieves the ID identifying the machine, hashed with AppID.
func MachineID() (string, error) {
	return machineid.ProtectedID(AppID)
}

// StationAddr derives a stable station address for a simulated radio on
// this machine. Different instances get different addresses.
func StationAddr(instance string) (radio.Addr, error) {
	id, err := MachineID()
	if err != nil {
		return radio.Addr{}, err
	}
	return AddrFromID(id + "/" + instance), nil
}

// AddrFromID maps an ID to a locally administered unicast address.
func AddrFromID(id string) (a radio.Addr) {
	sum := sha256.Sum256([]byte(id))
	copy(a[:], sum[:])
	a[0] = a[0]&0xfc | 0x02
	return
}
