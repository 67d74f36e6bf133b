package main

import (
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quidditch-service/config"
	"quidditch-service/database"
	"quidditch-service/services"
	"quidditch-service/web"
)

func main() {
	log.Println("Starting Quidditch League Service...")

	// 加载配置
	cfg := config.Load()

	// 连接数据库
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 运行数据库迁移
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database connected and migrated")

	store := services.NewPostgresStore(db)

	// 创建WebSocket Hub
	wsHub := web.NewHub()
	go wsHub.Run()

	// 通知链: WebSocket 总是启用，AMQP 按配置启用
	broadcasters := []services.Broadcaster{wsHub}
	var amqpNotifier *services.AMQPNotifier
	if cfg.AMQPUrl != "" {
		amqpNotifier = services.NewAMQPNotifier(cfg.AMQPUrl, cfg.AMQPExchange)
		if err := amqpNotifier.Start(); err != nil {
			log.Printf("⚠️ AMQP notifier disabled: %v", err)
		} else {
			broadcasters = append(broadcasters, amqpNotifier)
			log.Println("AMQP notifier started")
		}
	}
	broadcaster := services.NewMultiBroadcaster(broadcasters...)

	// 组装模拟引擎
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	generator := services.NewEventGenerator(rng)
	resolver := services.NewBetResolver(store)
	settlement := services.NewSettlementService(store, resolver, broadcaster)
	simulator := services.NewSimulator(store, generator, settlement, broadcaster,
		rand.New(rand.NewSource(time.Now().UnixNano()+1)),
		time.Duration(cfg.LiveDelayMinSeconds)*time.Second,
		time.Duration(cfg.LiveDelayMaxSeconds)*time.Second,
	)
	clock := services.NewVirtualClock(store, simulator, cfg.SeasonStart())
	seasons := services.NewSeasonService(store, clock, cfg.SeasonStart(), cfg.MatchIntervalDays)
	bets := services.NewBetService(store)

	// 启动Web服务器
	server := web.NewServer(cfg, store, wsHub, clock, simulator, seasons, bets)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Web server error: %v", err)
		}
	}()

	log.Printf("Web server started on port %s", cfg.Port)
	log.Println("Service is running. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down service...")

	// 清理资源: 先停掉直播模拟，再关服务器
	simulator.StopAll()
	if amqpNotifier != nil {
		amqpNotifier.Close()
	}
	server.Stop()

	log.Println("Service stopped")
}
