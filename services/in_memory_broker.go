package services

import (
	"sync"

	"quidditch-service/logger"
)

// topicAll 订阅所有比赛的通知
const topicAll = "*"

// InMemoryBroker 是 Broadcaster 的进程内实现，按比赛ID分发通知。
// 测试和不需要 WebSocket 的消费方使用它订阅直播进度
type InMemoryBroker struct {
	mu        sync.RWMutex
	consumers map[string][]chan *Notification
	closed    bool
}

// NewInMemoryBroker 创建 InMemoryBroker 实例
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		consumers: make(map[string][]chan *Notification),
	}
}

// Broadcast 实现 Broadcaster 接口
func (b *InMemoryBroker) Broadcast(notification *Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, topic := range []string{notification.MatchID, topicAll} {
		for _, consumerChan := range b.consumers[topic] {
			// 通道满了则丢弃，订阅方跟不上时不阻塞模拟循环
			select {
			case consumerChan <- notification:
			default:
				logger.Printf("[Broker] ⚠️ Consumer channel for topic %s full, notification dropped", topic)
			}
		}
	}
}

// Subscribe 订阅某场比赛的通知，matchID 为 "*" 时订阅全部。
// 返回的函数用于取消订阅
func (b *InMemoryBroker) Subscribe(matchID string) (<-chan *Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	consumerChan := make(chan *Notification, 256)
	b.consumers[matchID] = append(b.consumers[matchID], consumerChan)

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		chans := b.consumers[matchID]
		for i, ch := range chans {
			if ch == consumerChan {
				b.consumers[matchID] = append(chans[:i], chans[i+1:]...)
				close(consumerChan)
				return
			}
		}
	}
	return consumerChan, cancel
}

// Close 关闭所有订阅通道
func (b *InMemoryBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, chans := range b.consumers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.consumers = make(map[string][]chan *Notification)
}
