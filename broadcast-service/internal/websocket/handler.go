package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/The-Membrane/brane-auction/shared/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development (use proper CORS in production)
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var topics = map[string]bool{
	TopicAll:              true,
	models.KindSubmission: true,
	models.KindCuration:   true,
	models.KindBid:        true,
	models.KindSettlement: true,
}

// ValidTopic reports whether clients can subscribe to topic
func ValidTopic(topic string) bool {
	return topics[topic]
}

// Handler handles WebSocket connections
type Handler struct {
	manager *Manager
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *Manager) *Handler {
	return &Handler{
		manager: manager,
	}
}

// SetupRoutes configures WebSocket routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// WebSocket endpoint: /ws/{topic}, topic is an event kind or "all"
	router.HandleFunc("/ws/{topic}", h.HandleWebSocket)

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/stats/{topic}", h.GetStats).Methods("GET")

	return router
}

// HandleWebSocket upgrades HTTP connection to WebSocket
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !ValidTopic(topic) {
		http.Error(w, "Unknown topic", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade connection")
		return
	}

	client := &Client{
		ID:    uuid.New().String(),
		Topic: topic,
		Conn:  conn,
		Send:  make(chan []byte, 256),
	}

	// queue the welcome message before registering so it is the first frame
	welcome, _ := json.Marshal(map[string]string{
		"type":     "connected",
		"topic":    topic,
		"clientId": client.ID,
	})
	client.Send <- welcome

	h.manager.RegisterClient(client)
	client.StartReadPump(h.manager.unregister)
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy", "service": "broadcast-service"})
}

// GetStats returns the subscriber count of a topic
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if !ValidTopic(topic) {
		http.Error(w, "Unknown topic", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"topic":       topic,
		"subscribers": h.manager.GetSubscriberCount(topic),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}
