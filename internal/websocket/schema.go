package websocket

import (
	"encoding/json"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing     Action = "ping"
	ActionSnapshot Action = "snapshot"
)

// Request is any message sent by a live schedule client.
type Request struct {
	Action Action `json:"action"`
	Date   string `json:"date,omitempty"` // YYYY-MM-DD, snapshot only
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError         Event = "error"
	EventSnapshot      Event = "snapshot"
	EventScheduleEvent Event = "schedule_event"
	EventPong          Event = "pong"
)

// SnapshotResponse carries the day board of the subscribed branch.
type SnapshotResponse struct {
	Event Event       `json:"event"`
	Board interface{} `json:"board"`
}

// ScheduleEventResponse forwards a published schedule change untouched.
type ScheduleEventResponse struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
