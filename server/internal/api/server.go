package api

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/config"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/engine"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/model"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/session"
	"github.com/layyana-junaid/Voice-Assistance-Agent/server/internal/timeline"
)

// 上行消息类型（WebSocket 文本帧）。
const (
	msgTypeUserMessage = "user_message"
	msgTypeUIEvent     = "ui_event"
)

// clientMessage 是客户端发来的一帧。
// type=user_message 时 text 有效；type=ui_event 时 target 有效。
// 引擎只接受结构化事件，点击标记不会混进文本里。
type clientMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Target string `json:"target"`
}

type Server struct {
	config   *config.Config
	store    session.Store
	timeline timeline.Store
	engine   *engine.Engine
	logger   *log.Logger

	// queues 管理所有活跃连接的 turn 队列 (sessionID -> *TurnQueue)
	queues   map[string]*TurnQueue
	queuesMu sync.RWMutex

	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, store session.Store, tl timeline.Store, eng *engine.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
	for _, o := range cfg.CORS.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Server{
		config:   cfg,
		store:    store,
		timeline: tl,
		engine:   eng,
		logger:   logger,
		queues:   make(map[string]*TurnQueue),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// 非浏览器客户端（curl/测试）不带 Origin。
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func (s *Server) Routes() http.Handler {
	// Gin 统一承载中间件与路由，便于扩展日志/鉴权/限流等能力。
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), s.corsMiddleware())
	r.GET("/healthz", s.handleHealthz)
	r.GET("/ws", s.handleWS)
	r.GET("/api/sessions/:id/history", s.handleHistory)
	return r
}

// handleHealthz 返回服务健康状态。
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleHistory 返回某个 session 的转写流水（回放/调试用）。
func (s *Server) handleHistory(c *gin.Context) {
	entries, err := s.timeline.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load history failed"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// handleWS 处理 WebSocket 连接：签发 session id，
// 把上行帧解码成结构化 turn 事件，经 TurnQueue 串行喂给引擎，
// 并把每个回合的 UI 指令按序发回。
func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Printf("[API] ❌ Failed to upgrade websocket: %v", err)
		return
	}

	sessionID := uuid.NewString()
	s.logger.Printf("[API] 📞 WebSocket connected: session=%s remote=%s", sessionID, c.Request.RemoteAddr)

	// 指令只由队列的处理协程写出：gorilla 连接要求单写者，
	// 串行队列同时解决了并发写和回合间指令交错两个问题。
	queue := NewTurnQueue(sessionID, func(ctx context.Context, evt model.TurnEvent) error {
		actions, err := s.engine.HandleTurn(ctx, sessionID, evt)
		if err != nil {
			return err
		}
		for _, a := range actions {
			if err := conn.WriteJSON(a); err != nil {
				return err
			}
		}
		return nil
	}, s.logger)

	s.queuesMu.Lock()
	s.queues[sessionID] = queue
	active := len(s.queues)
	s.queuesMu.Unlock()
	s.logger.Printf("[API] Turn queue registered (total active: %d)", active)

	defer func() {
		s.queuesMu.Lock()
		delete(s.queues, sessionID)
		remaining := len(s.queues)
		s.queuesMu.Unlock()

		_ = queue.Close()
		_ = conn.Close()
		// 会话状态不跨连接存活。
		if err := s.store.Delete(context.Background(), sessionID); err != nil {
			s.logger.Printf("[API] delete session failed: %v", err)
		}
		s.logger.Printf("[API] 🔌 Session closed: %s (remaining: %d)", sessionID, remaining)
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("[API] read error: session=%s err=%v", sessionID, err)
			}
			return
		}

		var evt model.TurnEvent
		switch msg.Type {
		case msgTypeUserMessage:
			evt = model.SpeechEvent(msg.Text)
		case msgTypeUIEvent:
			evt = model.ClickEvent(msg.Target)
		default:
			s.logger.Printf("[API] unhandled message type: %s", msg.Type)
			continue
		}

		if err := queue.Enqueue(evt); err != nil {
			s.logger.Printf("[API] enqueue failed: session=%s err=%v", sessionID, err)
		}
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(s.config.CORS.AllowedOrigins))
	for _, o := range s.config.CORS.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		// 开发期：允许配置里的本地前端；线上应改为白名单或同源。
		if _, ok := allowed[origin]; ok {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
