package storage

import "context"

// NotificationArchiver сохраняет сырые тела вебхуков провайдера для разбора
// спорных ситуаций. Архивирование best-effort и не влияет на ack вебхука.
type NotificationArchiver interface {
	Archive(ctx context.Context, key string, body []byte) error
}

// NoopArchiver используется, когда объектное хранилище не сконфигурировано.
type NoopArchiver struct{}

func (NoopArchiver) Archive(ctx context.Context, key string, body []byte) error {
	return nil
}
