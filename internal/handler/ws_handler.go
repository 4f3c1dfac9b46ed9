package handler

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// How long a silent waiting-screen socket stays considered alive. Clients
// ping well inside this.
const wsReadTimeout = 45 * time.Second

// WaitingRoomSocket godoc
// @Summary      Hold the waiting-screen connection
// @Description  While the socket is open, every client message refreshes presence. A closed socket clears presence and expires the user's pairings immediately.
// @Tags         matching
// @Security     BearerAuth
// @Param        scheduled_session_id query int true "Scheduled session ID"
// @Success      101 {string} string "switching protocols"
// @Router       /matching/ws [get]
func WaitingRoomSocket(c *gin.Context) {
	userID, _ := c.Get("userID")
	sessionID, err := strconv.Atoi(c.Query("scheduled_session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_session_id required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	if err := Presence.Touch(ctx, userID.(uint), uint(sessionID)); err != nil {
		log.Printf("presence touch failed for user %v: %v", userID, err)
	}

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		// Any message from the waiting screen counts as a heartbeat.
		if err := Presence.Touch(ctx, userID.(uint), uint(sessionID)); err != nil {
			log.Printf("presence touch failed for user %v: %v", userID, err)
		}
	}

	// The user left the waiting screen: drop presence before expiring so the
	// requeue step does not resurrect them. The request context may already
	// be canceled at this point, so tear down on a fresh one.
	teardown := context.Background()
	Presence.Clear(teardown, userID.(uint), uint(sessionID))
	if _, err := Matching.ExpireOnDisconnect(teardown, userID.(uint)); err != nil {
		log.Printf("disconnect expiry failed for user %v: %v", userID, err)
	}
}
