package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// TopicAll receives every event regardless of kind
const TopicAll = "all"

// Manager manages all WebSocket connections
type Manager struct {
	// topic -> *sync.Map of *Client
	subscribers sync.Map

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
}

// Client represents a WebSocket client connection
type Client struct {
	ID    string
	Topic string
	Conn  *websocket.Conn
	Send  chan []byte
}

// BroadcastMessage is an event for everyone watching a topic
type BroadcastMessage struct {
	Topic   string
	Payload []byte
}

// NewManager creates a new WebSocket manager
func NewManager() *Manager {
	return &Manager{
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the manager's main loop until Stop is called.
// This should run in a goroutine
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.registerClient(client)

		case client := <-m.unregister:
			m.unregisterClient(client)

		case message := <-m.broadcast:
			m.broadcastToTopic(message.Topic, message.Payload)
			if message.Topic != TopicAll {
				m.broadcastToTopic(TopicAll, message.Payload)
			}

		case <-m.done:
			return
		}
	}
}

// Stop ends the Run loop
func (m *Manager) Stop() {
	close(m.done)
}

// RegisterClient adds a client to the manager
func (m *Manager) RegisterClient(client *Client) {
	m.register <- client
}

// UnregisterClient removes a client from the manager
func (m *Manager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// Broadcast sends a message to all clients watching a topic
func (m *Manager) Broadcast(topic string, payload []byte) {
	m.broadcast <- &BroadcastMessage{
		Topic:   topic,
		Payload: payload,
	}
}

func (m *Manager) topic(name string) *sync.Map {
	subscribers, _ := m.subscribers.LoadOrStore(name, &sync.Map{})
	return subscribers.(*sync.Map)
}

// registerClient adds a client to the subscribers map
func (m *Manager) registerClient(client *Client) {
	m.topic(client.Topic).Store(client, true)

	log.WithFields(log.Fields{
		"client": client.ID,
		"topic":  client.Topic,
	}).Info("Client subscribed")

	go client.writePump()
}

// unregisterClient removes a client and closes its connection. A client can
// be unregistered by both its read pump and a failed broadcast; only the
// first removal closes it.
func (m *Manager) unregisterClient(client *Client) {
	if _, ok := m.topic(client.Topic).LoadAndDelete(client); !ok {
		return
	}

	close(client.Send)
	client.Conn.Close()

	log.WithFields(log.Fields{
		"client": client.ID,
		"topic":  client.Topic,
	}).Info("Client unsubscribed")
}

// broadcastToTopic sends a message to all clients watching a topic
func (m *Manager) broadcastToTopic(topic string, payload []byte) {
	subscribers, ok := m.subscribers.Load(topic)
	if !ok {
		return
	}

	count := 0
	subscribers.(*sync.Map).Range(func(key, _ interface{}) bool {
		client := key.(*Client)
		select {
		case client.Send <- payload:
			count++
		default:
			// slow client, drop it so it cannot hold up the others
			m.unregisterClient(client)
		}
		return true
	})

	log.WithFields(log.Fields{"topic": topic, "clients": count}).Debug("Broadcasted event")
}

// GetSubscriberCount returns the number of clients watching a topic
func (m *Manager) GetSubscriberCount(topic string) int {
	subscribers, ok := m.subscribers.Load(topic)
	if !ok {
		return 0
	}
	count := 0
	subscribers.(*sync.Map).Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}

// writePump pumps messages from the Send channel to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump keeps the read deadline fresh and unregisters the client once the
// connection drops
func (c *Client) readPump(unregister chan<- *Client) {
	defer func() {
		unregister <- c
	}()

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("client", c.ID).Warn("WebSocket error")
			}
			break
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(message, &msg); err == nil {
			log.WithFields(log.Fields{"client": c.ID, "message": msg}).Debug("Client message")
		}
	}
}

// StartReadPump starts the read pump for this client
func (c *Client) StartReadPump(unregister chan<- *Client) {
	go c.readPump(unregister)
}
