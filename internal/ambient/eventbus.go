package ambient

import (
	"sync"
)

// eventBus 事件总线实现
type eventBus struct {
	subscribers map[EventType][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() EventBus {
	return &eventBus{
		subscribers: make(map[EventType][]EventHandler),
	}
}

// Publish 发布事件
func (eb *eventBus) Publish(event Event) {
	eb.mu.RLock()
	handlers, ok := eb.subscribers[event.Type()]
	eb.mu.RUnlock()

	if ok {
		for _, handler := range handlers {
			go handler(event)
		}
	}
}

// Subscribe 订阅事件
func (eb *eventBus) Subscribe(eventType EventType, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
}
