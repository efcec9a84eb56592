package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var ErrEventTypeRequired = errors.New("event type is required")

// Event 可分发事件，自身携带类型
type Event[K comparable] interface {
	EventType() K
}

// Handler 事件处理函数
type Handler[E any] func(ctx context.Context, event E) error

type subscription[E any] struct {
	id      uint64
	handler Handler[E]
}

// Bus 进程内同步事件总线
// 同一类型的订阅者按订阅顺序依次执行
type Bus[K comparable, E Event[K]] struct {
	mu       sync.RWMutex
	handlers map[K][]subscription[E]
	nextID   atomic.Uint64
}

func NewBus[K comparable, E Event[K]]() *Bus[K, E] {
	return &Bus[K, E]{handlers: make(map[K][]subscription[E])}
}

// Subscribe 订阅事件，返回取消订阅函数
func (b *Bus[K, E]) Subscribe(eventType K, handler Handler[E]) func() {
	if handler == nil {
		return func() {}
	}
	id := b.nextID.Add(1)
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], subscription[E]{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(eventType, id) })
	}
}

func (b *Bus[K, E]) unsubscribe(eventType K, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.handlers[eventType]
	for i, sub := range subs {
		if sub.id == id {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.handlers, eventType)
		return
	}
	b.handlers[eventType] = subs
}

// Subscribers 返回某类事件的订阅者数量
func (b *Bus[K, E]) Subscribers(eventType K) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Publish 按事件类型分发，所有订阅者都会执行，错误合并返回
func (b *Bus[K, E]) Publish(ctx context.Context, event E) error {
	var zero K
	eventType := event.EventType()
	if eventType == zero {
		return ErrEventTypeRequired
	}

	b.mu.RLock()
	subs := append([]subscription[E](nil), b.handlers[eventType]...)
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
