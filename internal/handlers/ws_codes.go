// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the lobby event stream.
const (
	BadSubprotocolError = 3000 // Client connected with an unsupported subprotocol.
	InvalidLobbyIDError = 3003 // No lobby exists for the game ID in the WS URL.
	SlowConsumerError   = 3004 // Watcher fell too far behind and was disconnected.
)
