// Package server defines the wire protocol shared by the hub and its clients:
// outbound events, inbound requests, and the helpers that decode and bound them.
package server

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// Outbound event tags.
const (
	EventSystem  = "system"
	EventHello   = "hello"
	EventMessage = "message"
)

// Inbound request tags.
const (
	RequestPost   = "message"
	RequestRename = "setName"
)

const (
	// MaxTextLength caps the text of a chat event, in characters.
	MaxTextLength = 2000
	// MaxNameLength caps a display name after trimming, in characters.
	MaxNameLength = 32

	// TimestampLayout is UTC ISO-8601 with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// System notice texts.
const (
	textWelcome       = "Welcome to WS chat!"
	textInvalidFormat = "Invalid message format"
	textEmptyName     = "Name must be non-empty"
)

// Event is an outbound message. Type selects the variant: system events carry
// Text, hello events carry UserID and Username, and message events carry all three.
type Event struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// Request is an inbound frame after classification. Text is set for posts and
// Name for renames; HasText reports whether the post carried a string text field.
type Request struct {
	Type    string
	Text    string
	HasText bool
	Name    string
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func newSystemEvent(text string, now time.Time) Event {
	return Event{Type: EventSystem, Text: text, CreatedAt: formatTimestamp(now)}
}

func newHelloEvent(userID, username string, now time.Time) Event {
	return Event{Type: EventHello, UserID: userID, Username: username, CreatedAt: formatTimestamp(now)}
}

func newChatEvent(text, userID, username string, now time.Time) Event {
	return Event{Type: EventMessage, Text: text, UserID: userID, Username: username, CreatedAt: formatTimestamp(now)}
}

// decodeRequest parses an untrusted frame. ok is false when the payload is not
// a JSON object or names neither known tag. Fields of the wrong JSON type are
// treated as absent.
func decodeRequest(raw []byte) (req Request, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Request{}, false
	}

	tag, ok := stringField(fields, "type")
	if !ok {
		return Request{}, false
	}

	switch tag {
	case RequestPost:
		text, hasText := stringField(fields, "text")
		return Request{Type: RequestPost, Text: text, HasText: hasText}, true
	case RequestRename:
		name, _ := stringField(fields, "name")
		return Request{Type: RequestRename, Name: name}, true
	default:
		return Request{}, false
	}
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// truncate keeps at most limit characters of s.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// sanitizeName trims surrounding whitespace and caps the result to MaxNameLength.
func sanitizeName(name string) string {
	return truncate(strings.TrimSpace(name), MaxNameLength)
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
