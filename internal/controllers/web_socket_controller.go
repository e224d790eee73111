package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"map_exhibits/internal/config"
	"map_exhibits/internal/middleware"
	"map_exhibits/internal/models"
	"map_exhibits/internal/session"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers are embedded on arbitrary sites
	},
}

const refreshTimeout = 10 * time.Second

// editingCommands need editor access to the exhibit.
var editingCommands = map[string]bool{
	"open": true, "set": true, "drag": true, "save": true, "close": true,
}

// sessionClient is one open viewer socket.
type sessionClient struct {
	conn    *websocket.Conn
	sess    *session.Session
	writeMu sync.Mutex
}

func (sc *sessionClient) send(v interface{}) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.conn.WriteJSON(v)
}

func (sc *sessionClient) sendError(err error) error {
	return sc.send(gin.H{"type": "error", "error": err.Error()})
}

// ExhibitHub tracks open viewer sessions per exhibit and tells them to
// reload when records change through the REST API.
type ExhibitHub struct {
	clients   map[uint]map[*sessionClient]bool
	broadcast chan uint
	mu        sync.Mutex
}

// NewExhibitHub creates and returns a new ExhibitHub instance.
// It also starts a goroutine to continuously run the broadcasting logic.
func NewExhibitHub() *ExhibitHub {
	hub := &ExhibitHub{
		clients:   make(map[uint]map[*sessionClient]bool),
		broadcast: make(chan uint, 100),
	}
	go hub.run()
	return hub
}

// run refreshes every session of each exhibit named on the broadcast channel.
func (h *ExhibitHub) run() {
	for exhibitID := range h.broadcast {
		h.mu.Lock()
		targets := make([]*sessionClient, 0, len(h.clients[exhibitID]))
		for sc := range h.clients[exhibitID] {
			targets = append(targets, sc)
		}
		h.mu.Unlock()

		for _, sc := range targets {
			go h.refresh(exhibitID, sc)
		}
	}
}

func (h *ExhibitHub) refresh(exhibitID uint, sc *sessionClient) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := sc.sess.Refresh(ctx); err != nil {
		logrus.WithError(err).WithField("exhibit_id", exhibitID).Warn("Session refresh failed.")
	}
	if err := sc.send(sc.sess.Snapshot()); err != nil {
		if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
			logrus.WithFields(logrus.Fields{
				"exhibit_id": exhibitID,
				"conn_ptr":   fmt.Sprintf("%p", sc.conn),
			}).Info("Client connection closed during broadcast, unregistering.")
			h.UnregisterClient(exhibitID, sc)
		} else {
			logrus.WithError(err).WithField("exhibit_id", exhibitID).Warn("Failed to send snapshot to client.")
		}
	}
}

// RegisterClient registers a viewer session with the hub.
func (h *ExhibitHub) RegisterClient(exhibitID uint, sc *sessionClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[exhibitID]; !ok {
		h.clients[exhibitID] = make(map[*sessionClient]bool)
	}
	h.clients[exhibitID][sc] = true
	logrus.WithFields(logrus.Fields{
		"exhibit_id": exhibitID,
		"conn_ptr":   fmt.Sprintf("%p", sc.conn),
	}).Info("Viewer session registered.")
}

// UnregisterClient removes a closed viewer session.
func (h *ExhibitHub) UnregisterClient(exhibitID uint, sc *sessionClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[exhibitID]; ok {
		delete(clients, sc)
		if len(clients) == 0 {
			delete(h.clients, exhibitID)
		}
	}
	logrus.WithFields(logrus.Fields{
		"exhibit_id": exhibitID,
		"conn_ptr":   fmt.Sprintf("%p", sc.conn),
	}).Info("Viewer session unregistered.")
}

// Clients returns the number of open sessions of an exhibit.
func (h *ExhibitHub) Clients(exhibitID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[exhibitID])
}

// Notify schedules a refresh of every session of an exhibit.
func (h *ExhibitHub) Notify(exhibitID uint) {
	select {
	case h.broadcast <- exhibitID:
	default:
		logrus.WithField("exhibit_id", exhibitID).Warn("Exhibit broadcast channel full, dropping refresh.")
	}
}

var exhibitHub = NewExhibitHub()

// authenticateSocket reads an optional ?token= and stores the caller on the
// context. Browsers cannot set headers on WebSocket requests.
func authenticateSocket(c *gin.Context) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		return nil
	}
	claims, err := middleware.ValidateToken(tokenString)
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	c.Set("user_id", claims.UserID)
	c.Set("role", claims.Role)
	return nil
}

// HandleExhibitSession runs a viewer session over a WebSocket. The client
// sends session frames and receives a snapshot after each one; REST saves
// to the exhibit push fresh snapshots.
func HandleExhibitSession(c *gin.Context) {
	if err := authenticateSocket(c); err != nil {
		logrus.WithError(err).Warn("Session connection attempt failed.")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	exhibit, ok := loadExhibit(c)
	if !ok {
		return
	}
	if !canView(c, exhibit) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Exhibit not found"})
		return
	}
	who, _ := middleware.CurrentUser(c)
	canEdit := middleware.Allowed(who.Role, middleware.ResourceExhibit, middleware.PrivEditor, ownership(c, exhibit, nil))

	log := logrus.WithFields(logrus.Fields{"exhibit_id": exhibit.ID, "user_id": who.UserID})
	sess, err := session.New(config.DB, exhibit, log)
	if err != nil {
		log.WithError(err).Error("Failed to create session.")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start session"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	serveSession(c.Request.Context(), &sessionClient{conn: conn, sess: sess}, exhibit, canEdit, log)
}

func serveSession(ctx context.Context, sc *sessionClient, exhibit *models.Exhibit, canEdit bool, log *logrus.Entry) {
	if err := sc.sess.Start(ctx); err != nil {
		log.WithError(err).Warn("Initial session load failed.")
		_ = sc.sendError(err)
	}

	exhibitHub.RegisterClient(exhibit.ID, sc)
	defer exhibitHub.UnregisterClient(exhibit.ID, sc)

	if err := sc.send(sc.sess.Snapshot()); err != nil {
		log.WithError(err).Warn("Failed to send initial snapshot.")
		return
	}

	for {
		messageType, p, err := sc.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Info("Session WebSocket closed.")
			} else {
				log.WithError(err).Error("Error reading session frame.")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var frame session.Frame
		if err := json.Unmarshal(p, &frame); err != nil {
			log.WithError(err).WithField("payload", string(p)).Warn("Malformed session frame.")
			_ = sc.sendError(fmt.Errorf("invalid frame: %w", err))
			continue
		}
		if editingCommands[frame.Command] && !canEdit {
			log.WithField("command", frame.Command).Warn("Editing command denied.")
			_ = sc.sendError(fmt.Errorf("%s: insufficient permissions", frame.Command))
			continue
		}

		if err := sc.sess.Handle(ctx, frame); err != nil {
			log.WithError(err).WithField("command", frame.Command).Debug("Session frame failed.")
			_ = sc.sendError(err)
		}
		if err := sc.send(sc.sess.Snapshot()); err != nil {
			log.WithError(err).Warn("Failed to send snapshot.")
			return
		}
	}
}
