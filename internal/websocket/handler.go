package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the connection and runs it as a Hub client.
// The optional ?list=<uid> query follows a single shopping list.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			hub.logger.Warn("accept websocket", "error", err)
			return
		}

		client := NewClient(hub, conn, r.URL.Query().Get("list"))
		client.Run(r.Context())
	}
}
