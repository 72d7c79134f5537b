package domain

// ConnectionStatus describes the local client's link to the audio
// transport for the room it believes it is in. Exactly one value is
// active at a time; the session state machine owns all transitions.
type ConnectionStatus string

const (
	Disconnected  ConnectionStatus = "disconnected"
	Connecting    ConnectionStatus = "connecting"
	Connected     ConnectionStatus = "connected"
	Disconnecting ConnectionStatus = "disconnecting"
)
