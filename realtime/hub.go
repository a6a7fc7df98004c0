package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Topic    string
	IsClosed bool
	Mu       sync.Mutex
}

// Message — конверт, уходящий подписчикам. Подписчики применяют payload по
// принципу insert-or-replace-by-id, поэтому дубликаты и перестановки безвредны.
type Message struct {
	Type    string      `json:"type"` // например, "MATCH_UPDATED"
	Payload interface{} `json:"payload"`
	Topic   string      `json:"topic,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Hub держит по логическому топику на турнир и рассылает публикации всем
// подключённым клиентам топика. Реализует Publisher.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	topics     map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		topics:     make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.topics[client.Topic]; !ok {
				h.topics[client.Topic] = make(map[*Client]bool)
			}
			h.topics[client.Topic][client] = true
			log.Printf("Client registered to topic %s. Total clients: %d", client.Topic, len(h.topics[client.Topic]))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.topics[client.Topic]; ok {
				if _, okClient := h.topics[client.Topic][client]; okClient {
					client.Mu.Lock()
					if !client.IsClosed {
						close(client.Send)
						client.IsClosed = true
					}
					client.Mu.Unlock()
					delete(h.topics[client.Topic], client)
					if len(h.topics[client.Topic]) == 0 {
						delete(h.topics, client.Topic)
						log.Printf("Topic %s closed as it's empty.", client.Topic)
					} else {
						log.Printf("Client unregistered from topic %s. Total clients: %d", client.Topic, len(h.topics[client.Topic]))
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish отправляет payload всем клиентам топика. Доставка fire-and-forget:
// клиент с забитым каналом пропускается, а не блокирует рассылку.
func (h *Hub) Publish(topic string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	topicClients, ok := h.topics[topic]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(Message{Type: "MATCH_UPDATED", Payload: payload, Topic: topic})
	if err != nil {
		log.Printf("Error marshalling message for topic %s: %v", topic, err)
		return
	}

	for client := range topicClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("Client's send channel full or closed for topic %s. Skipping.", topic)
		}
		client.Mu.Unlock()
	}
}

// SubscriberCount возвращает число подключённых клиентов топика.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
		c.Mu.Lock()
		c.IsClosed = true
		c.Mu.Unlock()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
		// Входящие сообщения от зрителей игнорируются: канал односторонний.
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Mu.Lock()
		c.IsClosed = true
		c.Mu.Unlock()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
