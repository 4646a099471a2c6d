package server

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Request
		ok      bool
	}{
		{"post", `{"type":"message","text":"hi"}`, Request{Type: RequestPost, Text: "hi", HasText: true}, true},
		{"post with extra fields", `{"type":"message","text":"hi","userId":"spoof"}`, Request{Type: RequestPost, Text: "hi", HasText: true}, true},
		{"post without text", `{"type":"message"}`, Request{Type: RequestPost}, true},
		{"post with numeric text", `{"type":"message","text":1}`, Request{Type: RequestPost}, true},
		{"rename", `{"type":"setName","name":" Bob "}`, Request{Type: RequestRename, Name: " Bob "}, true},
		{"rename with bool name", `{"type":"setName","name":true}`, Request{Type: RequestRename}, true},
		{"unknown tag", `{"type":"ping"}`, Request{}, false},
		{"no tag", `{"text":"hi"}`, Request{}, false},
		{"string payload", `"message"`, Request{}, false},
		{"null", `null`, Request{}, false},
		{"garbage", `{{{`, Request{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeRequest([]byte(tt.payload))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", truncate("", 3))
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "日本", truncate("日本語", 2))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Bob", sanitizeName("  Bob  "))
	assert.Equal(t, "", sanitizeName(" \t\n "))
	assert.Equal(t, strings.Repeat("x", MaxNameLength), sanitizeName("  "+strings.Repeat("x", 50)))
}

func TestEventEncoding(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.FixedZone("UTC+2", 2*60*60))

	cases := []struct {
		event Event
		want  string
	}{
		{
			newSystemEvent("hi", now),
			`{"type":"system","text":"hi","createdAt":"2024-01-02T01:04:05.006Z"}`,
		},
		{
			newHelloEvent("abc", "user-abc", now),
			`{"type":"hello","userId":"abc","username":"user-abc","createdAt":"2024-01-02T01:04:05.006Z"}`,
		},
		{
			newChatEvent("yo", "abc", "Bob", now),
			`{"type":"message","text":"yo","userId":"abc","username":"Bob","createdAt":"2024-01-02T01:04:05.006Z"}`,
		},
	}

	for _, tc := range cases {
		raw, err := json.Marshal(tc.event)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(raw))
	}
}

func TestIsExpectedCloseError(t *testing.T) {
	assert.True(t, isExpectedCloseError(nil))
	assert.True(t, isExpectedCloseError(errors.New("write tcp: use of closed network connection")))
	assert.True(t, isExpectedCloseError(errors.New("websocket: close sent")))
	assert.True(t, isExpectedCloseError(errors.New("write: broken pipe")))
	assert.False(t, isExpectedCloseError(errors.New("something else")))
}
