package chatclient

// Server event tags.
const (
	EventSystem  = "system"
	EventHello   = "hello"
	EventMessage = "message"
)

const (
	requestPost   = "message"
	requestRename = "setName"
)

// Event is a server-to-client event.
type Event struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type postRequest struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type renameRequest struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// State represents the current state of the client's connection.
type State int

const (
	// StateDisconnected means no connection is open and none is being dialed.
	StateDisconnected State = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateConnected means the connection is open.
	StateConnected

	// StateClosed means Close was called; the client will not reconnect.
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
