package service

// Broadcaster sends real-time battle events to connected spectators.
// Implemented by the WebSocket hub.
type Broadcaster interface {
	BroadcastBattleEvent(battleID string, eventType string, data any)
}

// NoopBroadcaster is a no-op implementation for tests and CLI runs.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastBattleEvent(string, string, any) {}
