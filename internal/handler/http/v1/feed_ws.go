package v1

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Build-Your-Web-2025/SafeCity/internal/feed"
	"github.com/Build-Your-Web-2025/SafeCity/internal/models"
	"github.com/Build-Your-Web-2025/SafeCity/internal/view"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// @Summary Live incident feed
// @Description Upgrade to a WebSocket that streams full snapshots of the incident feed. Every frame replaces the previous one entirely. Clients send {"action":"filter","filter":{...}} to re-project the current snapshot locally and {"action":"refresh"} to force a re-fetch. Pass scope=mine with a token to watch only your own reports.
// @Tags Incidents
// @Param scope query string false "Feed scope: all or mine" default(all)
// @Param token query string false "Session token (required for scope=mine)"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "scope=mine without a session"
// @Router /feed [get]
func (h *Handler) feedWS(c *gin.Context) {
	log := h.logger.WithField("method", "feedWS")

	q := feed.Query{Scope: feed.ScopeAll}
	if c.Query("scope") == "mine" {
		sess, ok := sessionFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required for scope=mine"})
			return
		}
		q = feed.Query{Scope: feed.ScopeByOwner, OwnerID: sess.UID}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	client := &feedClient{
		conn:   conn,
		frames: make(chan FeedFrame, 1),
	}

	// Одно соединение - один логический потребитель ленты
	consumerID := uuid.NewString()
	defer func() {
		cancel()
		h.feeds.Dispose(consumerID)
		conn.Close()
	}()

	h.feeds.Watch(ctx, consumerID, q, client.deliver)
	go client.writeLoop(ctx, log)

	for {
		var cmd FeedCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("Feed connection closed unexpectedly")
			}
			return
		}

		switch cmd.Action {
		case "filter":
			client.setFilter(toViewFilter(cmd.Filter))
		case "refresh":
			h.feeds.Refresh(consumerID)
		default:
			log.WithField("action", cmd.Action).Debug("Unknown feed command")
		}
	}
}

// feedClient хранит последний сырой снимок и локальное состояние
// фильтров. Смена фильтра пересобирает кадр из уже полученного
// снимка без обращения к бэкенду.
type feedClient struct {
	conn   *websocket.Conn
	frames chan FeedFrame

	mu     sync.Mutex
	last   feed.State
	filter view.Filter
}

func (cl *feedClient) deliver(st feed.State) {
	cl.mu.Lock()
	cl.last = st
	frame := cl.frame()
	cl.mu.Unlock()
	cl.enqueue(frame)
}

func (cl *feedClient) setFilter(f view.Filter) {
	cl.mu.Lock()
	cl.filter = f
	frame := cl.frame()
	cl.mu.Unlock()
	cl.enqueue(frame)
}

// frame собирает кадр из последнего снимка через проекцию.
// Вызывается под мьютексом.
func (cl *feedClient) frame() FeedFrame {
	frame := FeedFrame{
		Items:   incidentsToFrameItems(view.Project(cl.last.Items, cl.filter)),
		Loading: cl.last.Loading,
	}
	if cl.last.Err != nil {
		frame.Error = cl.last.Err.Error()
	}
	return frame
}

// enqueue ставит кадр в очередь на отправку. Каждый кадр - полный
// снимок, поэтому при отстающем писателе старый кадр вытесняется новым.
func (cl *feedClient) enqueue(f FeedFrame) {
	for {
		select {
		case cl.frames <- f:
			return
		default:
			select {
			case <-cl.frames:
			default:
			}
		}
	}
}

func (cl *feedClient) writeLoop(ctx context.Context, log *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-cl.frames:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(frame); err != nil {
				log.WithError(err).Debug("Failed to write feed frame")
				return
			}
		}
	}
}

func toViewFilter(f FeedFilter) view.Filter {
	out := view.Filter{
		Category: models.Category(f.Category),
		Status:   models.Status(f.Status),
		Verified: f.Verified,
		Search:   f.Search,
		Range:    view.RangeAll,
	}
	if f.Range != "" {
		out.Range = view.DateRange(f.Range)
	}
	return out
}
