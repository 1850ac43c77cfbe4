package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/middleware"
	"github.com/tutorhub/class-engine/internal/response"
	"github.com/tutorhub/class-engine/internal/schedule"
	"github.com/tutorhub/class-engine/internal/service"
	ws "github.com/tutorhub/class-engine/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Subscriber opens Redis pub/sub subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// DayBoards builds the day view of a branch.
type DayBoards interface {
	GetDayBoard(ctx context.Context, branchID int, day time.Time) (*service.DayBoard, error)
}

// WSHandler streams live schedule changes of one branch.
type WSHandler struct {
	rdb      Subscriber
	boards   DayBoards
	now      service.Clock
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb Subscriber, boards DayBoards, now service.Clock, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		boards:   boards,
		now:      now,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// DayBoard godoc
// GET /api/v1/admin/branches/:id/board?date=YYYY-MM-DD
// Returns the sessions and placed makeups of a branch on one day.
func (h *WSHandler) DayBoard(c *gin.Context) {
	branchID, ok := intParam(c, "id")
	if !ok {
		return
	}
	day, ok := dateQuery(c, "date", schedule.Day(h.now()))
	if !ok {
		return
	}

	board, err := h.boards.GetDayBoard(c.Request.Context(), branchID, day)
	if err != nil {
		response.FailWithError(c, err)
		return
	}
	response.Success(c, http.StatusOK, board)
}

// BranchEvents godoc
// WS /ws/v1/branches/:id/events?token=...
// Sends today's board, then forwards every schedule event published for the
// branch. Clients may ask for the board of another day with a snapshot action.
func (h *WSHandler) BranchEvents(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	branchID, ok := intParam(c, "id")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	wsLog := h.log.With().Int("branch_id", branchID).Int("staff_id", claims.UserID).Logger()

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.BranchEventsChannel(branchID))
	defer pubsub.Close()
	events := pubsub.Channel()

	if err := h.writeSnapshot(ctx, conn, branchID, schedule.Day(h.now())); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to send initial board")
		return
	}

	requests := make(chan ws.Request)
	go h.readRequests(ctx, conn, cancel, requests, wsLog)

	pingTicker := time.NewTicker(ws.PingPeriod)
	defer pingTicker.Stop()

	wsLog.Info().Msg("Staff attached to branch events")

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("Branch events stream closed")
			return

		case msg, open := <-events:
			if !open {
				return
			}
			if err := ws.WriteTyped(conn, ws.ScheduleEventResponse{
				Event: ws.EventScheduleEvent,
				Data:  []byte(msg.Payload),
			}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}

		case req := <-requests:
			if err := h.handleRequest(ctx, conn, branchID, req); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed")
				return
			}

		case <-pingTicker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// readRequests owns the read side of conn. It cancels the stream when the
// client goes away.
func (h *WSHandler) readRequests(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc, out chan<- ws.Request, log zerolog.Logger) {
	defer cancel()
	ws.KeepAlive(conn)
	for {
		var req ws.Request
		if err := ws.ReadJSON(conn, &req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}

func (h *WSHandler) handleRequest(ctx context.Context, conn *websocket.Conn, branchID int, req ws.Request) error {
	switch req.Action {
	case ws.ActionPing:
		return ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
	case ws.ActionSnapshot:
		day := schedule.Day(h.now())
		if req.Date != "" {
			d, err := schedule.ParseDate(req.Date)
			if err != nil {
				return ws.WriteError(conn, "date must be in YYYY-MM-DD format")
			}
			day = d
		}
		return h.writeSnapshot(ctx, conn, branchID, day)
	default:
		return ws.WriteError(conn, "unknown action: "+string(req.Action))
	}
}

func (h *WSHandler) writeSnapshot(ctx context.Context, conn *websocket.Conn, branchID int, day time.Time) error {
	board, err := h.boards.GetDayBoard(ctx, branchID, day)
	if err != nil {
		h.log.Error().Err(err).Int("branch_id", branchID).Msg("Failed to build day board")
		return ws.WriteError(conn, "board unavailable")
	}
	return ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Board: board})
}
