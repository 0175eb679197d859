package handler

// BroadcastBattleEvent implements service.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastBattleEvent(battleID string, eventType string, data any) {
	h.BroadcastToBattle(battleID, WSEvent{
		Type:     eventType,
		BattleID: battleID,
		Data:     data,
	})
}
