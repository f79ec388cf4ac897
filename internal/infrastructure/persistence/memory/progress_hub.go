package memory

import (
	"context"
	"sync"

	"notegen-api/internal/domain/service"
)

// subscriberBuffer 订阅者缓冲，消费过慢时丢弃中间进度
const subscriberBuffer = 32

// ProgressHub 进程内进度总线
type ProgressHub struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan service.ProgressEvent
	nextID int
}

// NewProgressHub 创建进度总线
func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[int]chan service.ProgressEvent)}
}

// Publish 向所有订阅者广播
func (h *ProgressHub) Publish(_ context.Context, event service.ProgressEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[event.GenerationID] {
		if event.Terminal() {
			// 终态事件不能丢：腾出一个位置
			select {
			case ch <- event:
			default:
				select {
				case <-ch:
				default:
				}
				ch <- event
			}
			continue
		}
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe 订阅某次生成的事件
func (h *ProgressHub) Subscribe(ctx context.Context, generationID string) (<-chan service.ProgressEvent, func(), error) {
	ch := make(chan service.ProgressEvent, subscriberBuffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[generationID] == nil {
		h.subs[generationID] = make(map[int]chan service.ProgressEvent)
	}
	h.subs[generationID][id] = ch
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[generationID], id)
			if len(h.subs[generationID]) == 0 {
				delete(h.subs, generationID)
			}
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel, nil
}
