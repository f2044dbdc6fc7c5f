// Package push maintains the long-lived notification channel and translates
// inbound events into typed cache operations. The client never publishes on
// this channel.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

type EventType string

const (
	EventTaskUpdate EventType = "task_update"
	EventTaskDelete EventType = "task_delete"
)

// Event is one inbound notification. TaskID is set for task_delete only.
type Event struct {
	Type   EventType
	TaskID int64
}

type State int32

const (
	Disconnected State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Listener owns one websocket connection per session. There is no automatic
// reconnect; when the connection drops the event channel closes and the
// surrounding application decides what to do.
type Listener struct {
	conn      *websocket.Conn
	events    chan Event
	done      chan struct{}
	state     atomic.Int32
	closeOnce sync.Once
	logger    *log.Logger
}

// wireMessage is the discriminated inbound payload.
type wireMessage struct {
	Type   string `json:"type"`
	TaskID int64  `json:"task_id"`
}

// Dial opens the notification channel. The session token travels in the
// handshake URL, not per-message.
func Dial(ctx context.Context, wsURL, token string) (*Listener, error) {
	l := &Listener{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
		logger: log.Default(),
	}
	l.state.Store(int32(Connecting))

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("push: parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		l.state.Store(int32(Disconnected))
		if resp != nil {
			return nil, fmt.Errorf("push: dial: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("push: dial: %w", err)
	}
	l.conn = conn
	l.state.Store(int32(Open))
	go l.readLoop()
	return l, nil
}

// Events returns the inbound event stream. The channel closes when the
// connection closes, from either side.
func (l *Listener) Events() <-chan Event {
	return l.events
}

func (l *Listener) State() State {
	return State(l.state.Load())
}

// Close tears the connection down. Safe to call more than once; used at
// logout and on unmount.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.state.Store(int32(Closed))
		close(l.done)
		err = l.conn.Close()
	})
	return err
}

func (l *Listener) readLoop() {
	defer close(l.events)
	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if l.State() != Closed {
				l.logger.Printf("push: connection closed: %v", err)
				l.state.Store(int32(Closed))
			}
			return
		}
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed payloads are dropped, not raised.
			continue
		}
		var ev Event
		switch EventType(msg.Type) {
		case EventTaskUpdate:
			ev = Event{Type: EventTaskUpdate}
		case EventTaskDelete:
			ev = Event{Type: EventTaskDelete, TaskID: msg.TaskID}
		default:
			// Unknown types are ignored for forward compatibility.
			continue
		}
		// Delivery blocks: every recognized event must reach the consumer,
		// so a slow reader backpressures the socket rather than losing a
		// delete. Only a racing Close abandons the send.
		select {
		case l.events <- ev:
		case <-l.done:
			return
		}
	}
}
