package services

import "time"

// 通知类型
const (
	NotifyMatchStarted  = "match_started"
	NotifyMatchEvent    = "match_event"
	NotifyMatchFinished = "match_finished"
)

// Notification 引擎向订阅方广播的一条通知
type Notification struct {
	Type      string      `json:"type"`
	MatchID   string      `json:"match_id"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Broadcaster 通知广播的抽象接口。WebSocket Hub、AMQP 发布器和
// 进程内 Broker 都实现了它
type Broadcaster interface {
	Broadcast(notification *Notification)
}

// NewNotification 创建通知
func NewNotification(notifyType, matchID string, data interface{}) *Notification {
	return &Notification{
		Type:      notifyType,
		MatchID:   matchID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

// MultiBroadcaster 把一条通知分发给多个 Broadcaster
type MultiBroadcaster struct {
	targets []Broadcaster
}

// NewMultiBroadcaster 创建 MultiBroadcaster
func NewMultiBroadcaster(targets ...Broadcaster) *MultiBroadcaster {
	return &MultiBroadcaster{targets: targets}
}

// Broadcast 实现 Broadcaster 接口
func (m *MultiBroadcaster) Broadcast(notification *Notification) {
	for _, target := range m.targets {
		target.Broadcast(notification)
	}
}
