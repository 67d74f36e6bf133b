package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"quidditch-service/logger"
)

// ReconnectConfig 重连配置
type ReconnectConfig struct {
	MaxRetries    int           // 最大重试次数 (0 = 无限重试)
	InitialDelay  time.Duration // 初始延迟
	MaxDelay      time.Duration // 最大延迟
	BackoffFactor float64       // 退避因子
}

// DefaultReconnectConfig 默认重连配置
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		MaxRetries:    0,
		InitialDelay:  1 * time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
	}
}

// AMQPNotifier 把引擎的通知发布到 AMQP exchange，供站外消费方订阅。
// 实现 Broadcaster 接口，发布失败时丢弃消息并依赖自动重连恢复
type AMQPNotifier struct {
	url      string
	exchange string
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    chan *Notification
	done     chan struct{}
}

// NewAMQPNotifier 创建 AMQP 发布器
func NewAMQPNotifier(url, exchange string) *AMQPNotifier {
	return &AMQPNotifier{
		url:      url,
		exchange: exchange,
		queue:    make(chan *Notification, 1024),
		done:     make(chan struct{}),
	}
}

// Start 建立连接并启动发布循环，连接断开后按指数退避自动重连
func (n *AMQPNotifier) Start() error {
	if err := n.connect(); err != nil {
		return fmt.Errorf("initial connection failed: %w", err)
	}

	logger.Printf("[AMQP] Publisher connected, exchange: %s", n.exchange)
	go n.publishLoop()
	return nil
}

func (n *AMQPNotifier) connect() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	n.conn = conn
	n.channel = channel
	return nil
}

// publishLoop 消费内部队列并发布，出错时重连
func (n *AMQPNotifier) publishLoop() {
	for {
		select {
		case <-n.done:
			return
		case notification := <-n.queue:
			if err := n.publish(notification); err != nil {
				logger.Errorf("[AMQP] ❌ Publish failed, reconnecting: %v", err)
				n.reconnect()
			}
		}
	}
}

func (n *AMQPNotifier) publish(notification *Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	routingKey := fmt.Sprintf("match.%s", notification.Type)
	return n.channel.Publish(n.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
}

// reconnect 按指数退避重连
func (n *AMQPNotifier) reconnect() {
	config := DefaultReconnectConfig()
	delay := config.InitialDelay

	for attempt := 1; ; attempt++ {
		select {
		case <-n.done:
			return
		case <-time.After(delay):
		}

		logger.Printf("[AMQP] Reconnect attempt %d...", attempt)
		if err := n.connect(); err == nil {
			logger.Println("[AMQP] ✅ Reconnected")
			return
		}

		if config.MaxRetries > 0 && attempt >= config.MaxRetries {
			logger.Errorf("[AMQP] ❌ Giving up after %d attempts", attempt)
			return
		}

		delay = time.Duration(float64(delay) * config.BackoffFactor)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}
}

// Broadcast 实现 Broadcaster 接口。队列满时丢弃，不阻塞模拟循环
func (n *AMQPNotifier) Broadcast(notification *Notification) {
	select {
	case n.queue <- notification:
	default:
		logger.Printf("[AMQP] ⚠️ Publish queue full, notification dropped")
	}
}

// Close 停止发布循环并关闭连接
func (n *AMQPNotifier) Close() {
	close(n.done)
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
