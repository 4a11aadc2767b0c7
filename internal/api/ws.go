package api

import (
	"net/http"
	"sync"
	"time"

	"cherries_service/internal/realtime"
	"cherries_service/internal/service"
	"cherries_service/pkg/auth"
	"cherries_service/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Close codes for the live subscription handshake, matching the API contract.
const (
	closeInvalidToken   = 4001
	closeNotParticipant = 4003
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type liveRoutes struct {
	registry *realtime.Registry
	qs       service.QuestServiceI
	a        *auth.JWTAuth
}

func NewLiveRoutes(handler *gin.RouterGroup, registry *realtime.Registry, qs service.QuestServiceI, a *auth.JWTAuth) {
	r := &liveRoutes{registry: registry, qs: qs, a: a}
	h := handler.Group("/ws")

	h.GET("/quests/:quest_id", r.handleQuestSocket)
}

// wsConn adapts a websocket connection to the registry's transport handle.
// gorilla permits one concurrent writer, so sends are serialized here.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) Send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (r *liveRoutes) handleQuestSocket(c *gin.Context) {
	log := logger.Logger()

	questID, err := uuid.Parse(c.Param("quest_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quest_id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	user, err := r.a.VerifyToken(c.Query("token"))
	if err != nil {
		log.Info("websocket auth failed",
			zap.String("quest_id", questID.String()),
			zap.Error(err))
		closeWithCode(conn, closeInvalidToken, "invalid token")
		return
	}

	isParticipant, err := r.qs.IsParticipant(c.Request.Context(), questID, user.ID)
	if err != nil {
		log.Error("failed to check participant", zap.Error(err))
		closeWithCode(conn, websocket.CloseInternalServerErr, "internal error")
		return
	}
	if !isParticipant {
		closeWithCode(conn, closeNotParticipant, "not a participant")
		return
	}

	log.Info("websocket connected",
		zap.String("quest_id", questID.String()),
		zap.String("user_id", user.ID.String()))

	handle := &wsConn{conn: conn}
	r.registry.Subscribe(questID, user.ID, handle)

	go r.readLoop(questID, user.ID, handle)
}

// readLoop drains the connection until it drops. Clients send nothing beyond
// liveness pings, so inbound payloads are discarded; the loop exists to detect
// disconnects and tear down the registry entry.
func (r *liveRoutes) readLoop(questID, userID uuid.UUID, handle *wsConn) {
	log := logger.Logger()

	defer func() {
		r.registry.UnsubscribeConn(questID, userID, handle)
		handle.conn.Close()
		log.Info("websocket disconnected",
			zap.String("quest_id", questID.String()),
			zap.String("user_id", userID.String()))
	}()

	for {
		if _, _, err := handle.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Info("websocket unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func closeWithCode(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(writeTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
}
