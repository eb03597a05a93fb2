package assoc

import "errors"

var (
	// ErrNotConfigured indicates Start is called before Configure.
	ErrNotConfigured = errors.New("station not configured")
	// ErrAlreadyStarted indicates the station is already started.
	ErrAlreadyStarted = errors.New("station already started")
	// ErrNotStarted indicates association is requested before Start.
	ErrNotStarted = errors.New("station not started")
	// ErrAssociationInProgress indicates a handshake is already running.
	ErrAssociationInProgress = errors.New("association in progress")
	// ErrInvalidSSID indicates the network name is empty or too long.
	ErrInvalidSSID = errors.New("ssid must be 1-32 bytes")
	// ErrInvalidPassword indicates the credential has an invalid length.
	ErrInvalidPassword = errors.New("password must be empty or 8-63 bytes")
	// ErrInvalidChannel indicates the fixed channel is out of range.
	ErrInvalidChannel = errors.New("channel must be 1-14")
)
