package domain

import "time"

// EventType identifies a realtime event pushed to the UI over SSE.
type EventType string

const (
	EventNewMail       EventType = "mail.new"
	EventFolderUpdated EventType = "folder.updated"
	EventMailRead      EventType = "mail.read"
	EventMailUnread    EventType = "mail.unread"
	EventMailSent      EventType = "mail.sent"
	EventSyncError     EventType = "sync.error"
	EventSessionEnded  EventType = "session.ended"
)

// RealtimeEvent is pushed to the frontend over SSE. Seq is assigned by the
// hub so the UI can detect gaps and ordering.
type RealtimeEvent struct {
	Type      EventType `json:"type"`
	Seq       int64     `json:"seq"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRealtimeEvent builds an event stamped with the current time.
func NewRealtimeEvent(t EventType, data any) *RealtimeEvent {
	return &RealtimeEvent{Type: t, Data: data, Timestamp: time.Now()}
}

// SyncTrigger names what caused a folder fetch. Every trigger funnels into
// the same orchestrator entry point.
type SyncTrigger string

const (
	TriggerBootstrap  SyncTrigger = "bootstrap"
	TriggerViewChange SyncTrigger = "view_change"
	TriggerFilter     SyncTrigger = "filter_change"
	TriggerManual     SyncTrigger = "manual_refresh"
	TriggerPoll       SyncTrigger = "poll_tick"
	TriggerPush       SyncTrigger = "push_event"
	TriggerAgent      SyncTrigger = "agent_action"
)
