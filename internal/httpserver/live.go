package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tinytelemetry/honeywatch/internal/apperr"
	"github.com/tinytelemetry/honeywatch/internal/model"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = (livePongWait * 9) / 10
	liveSendBuffer = 16
	liveReadLimit  = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// liveMessage is one push on /api/live: a snapshot summary or a refresh
// failure.
type liveMessage struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	Timestamp   time.Time          `json:"timestamp"`
	Seq         uint64             `json:"seq,omitempty"`
	RefreshedAt *time.Time         `json:"refreshed_at,omitempty"`
	Stats       *model.Stats       `json:"stats,omitempty"`
	TimeSeries  []model.TimeBucket `json:"time_series,omitempty"`
	GeoClusters []model.GeoCluster `json:"geo_clusters,omitempty"`
	Error       string             `json:"error,omitempty"`
	Kind        string             `json:"kind,omitempty"`
}

func newLiveMessage(u model.Update) liveMessage {
	msg := liveMessage{
		ID:        uuid.New().String(),
		Type:      "snapshot",
		Timestamp: time.Now(),
	}
	if u.Snapshot != nil {
		snap := u.Snapshot
		msg.Seq = snap.Seq
		msg.RefreshedAt = &snap.RefreshedAt
		msg.Stats = &snap.Stats
		msg.TimeSeries = snap.TimeSeries
		msg.GeoClusters = snap.GeoClusters
	}
	if u.Err != nil {
		msg.Type = "error"
		msg.Error = u.Err.Error()
		msg.Kind = string(apperr.KindOf(u.Err))
	}
	return msg
}

type liveClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	log  *zap.Logger
}

// handleLive upgrades to a websocket and streams every published update.
func (s *Server) handleLive(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &liveClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, liveSendBuffer),
		done: make(chan struct{}),
		log:  s.log,
	}
	client.log.Debug("live client connected", zap.String("client_id", client.id.String()))

	cancel := s.view.Subscribe(client.enqueue)
	go func() {
		client.readPump()
		cancel()
	}()
	go client.writePump(s.ctx.Done())
}

// enqueue runs on the publishing goroutine and must not block.
func (lc *liveClient) enqueue(u model.Update) {
	payload, err := json.Marshal(newLiveMessage(u))
	if err != nil {
		lc.log.Error("encode live message", zap.Error(err))
		return
	}
	select {
	case <-lc.done:
	case lc.send <- payload:
	default:
		lc.log.Warn("live client too slow, dropping update", zap.String("client_id", lc.id.String()))
	}
}

// readPump discards client frames and detects disconnects.
func (lc *liveClient) readPump() {
	defer func() {
		close(lc.done)
		lc.conn.Close()
	}()

	lc.conn.SetReadLimit(liveReadLimit)
	lc.conn.SetReadDeadline(time.Now().Add(livePongWait))
	lc.conn.SetPongHandler(func(string) error {
		lc.conn.SetReadDeadline(time.Now().Add(livePongWait))
		return nil
	})

	for {
		if _, _, err := lc.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				lc.log.Debug("live client read error", zap.String("client_id", lc.id.String()), zap.Error(err))
			}
			return
		}
	}
}

func (lc *liveClient) writePump(shutdown <-chan struct{}) {
	ticker := time.NewTicker(livePingPeriod)
	defer func() {
		ticker.Stop()
		lc.conn.Close()
	}()

	for {
		select {
		case payload := <-lc.send:
			lc.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := lc.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			lc.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := lc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-shutdown:
			lc.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(liveWriteWait))
			return
		case <-lc.done:
			return
		}
	}
}
