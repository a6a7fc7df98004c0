package realtime

import (
	"strconv"
	"sync"
)

// Publisher — абстракция fan-out: движок согласования публикует событие в
// топик турнира, не зная о транспорте. Доставка best-effort, без outbox:
// переподключившийся подписчик перечитывает состояние сам.
type Publisher interface {
	Publish(topic string, payload interface{})
}

// TournamentTopic формирует имя топика для турнира.
func TournamentTopic(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

// MemoryPublisher накапливает публикации в памяти. Используется в тестах и
// как заглушка, когда websocket-хаб не поднят.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []MemoryEvent
}

type MemoryEvent struct {
	Topic   string
	Payload interface{}
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(topic string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, MemoryEvent{Topic: topic, Payload: payload})
}

func (p *MemoryPublisher) Events() []MemoryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]MemoryEvent, len(p.events))
	copy(out, p.events)
	return out
}
