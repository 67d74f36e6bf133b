package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"quidditch-service/config"
	"quidditch-service/pkg/common"
	"quidditch-service/services"
)

type Server struct {
	config     *config.Config
	store      services.Store
	wsHub      *Hub
	clock      *services.VirtualClock
	simulator  *services.Simulator
	seasons    *services.SeasonService
	bets       *services.BetService
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

func NewServer(cfg *config.Config, store services.Store, hub *Hub, clock *services.VirtualClock, simulator *services.Simulator, seasons *services.SeasonService, bets *services.BetService) *Server {
	return &Server{
		config:    cfg,
		store:     store,
		wsHub:     hub,
		clock:     clock,
		simulator: simulator,
		seasons:   seasons,
		bets:      bets,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
}

// Router 构建完整的路由和中间件链
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	api.HandleFunc("/clock", s.handleGetClock).Methods("GET")
	api.HandleFunc("/clock/advance", s.handleAdvanceClock).Methods("POST")
	api.HandleFunc("/clock/reset", s.handleResetClock).Methods("POST")

	api.HandleFunc("/seasons", s.handleCreateSeason).Methods("POST")
	api.HandleFunc("/standings", s.handleGetStandings).Methods("GET")
	api.HandleFunc("/teams", s.handleGetTeams).Methods("GET")

	api.HandleFunc("/matches", s.handleGetMatches).Methods("GET")
	api.HandleFunc("/matches/{match_id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{match_id}/result", s.handleGetMatchResult).Methods("GET")
	api.HandleFunc("/matches/{match_id}/simulate", s.handleSimulateInstant).Methods("POST")
	api.HandleFunc("/matches/{match_id}/live/start", s.handleStartLive).Methods("POST")
	api.HandleFunc("/matches/{match_id}/live/stop", s.handleStopLive).Methods("POST")

	api.HandleFunc("/bets", s.handlePlaceBet).Methods("POST")
	api.HandleFunc("/bets", s.handleGetBets).Methods("GET")

	// WebSocket路由
	router.HandleFunc("/ws", s.handleWebSocket)

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(router)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleWebSocket WebSocket连接处理
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:      s.wsHub,
		conn:     conn,
		send:     make(chan []byte, 256),
		matchIDs: make(map[string]bool),
	}

	client.hub.register <- client

	welcomeMsg := &WSMessage{
		Type: "connected",
		Data: map[string]interface{}{
			"message": "Connected to Quidditch League WebSocket",
			"time":    time.Now().Unix(),
		},
	}
	welcomeData, _ := json.Marshal(welcomeMsg)
	client.send <- welcomeData

	go client.writePump()
	go client.readPump()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError 把引擎错误映射为 HTTP 状态码
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrNoActiveSeason):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, common.ErrSimulationRunning):
		status = http.StatusConflict
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
