package discord

// Status is the supervisor's view of the gateway connection. Handlers read
// it to decide whether to serve or reject with service-unavailable.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
