package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"course-planner/internal/ai"
	"course-planner/internal/recommend"
	"course-planner/internal/store"
)

// Config defines server dependencies.
type Config struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	DefaultAPIKey      string
	Gemini             ai.Config
	StorePath          string
	StoreDisabled      bool
	SilentDB           bool
	// Sender replaces the Gemini client when set.
	Sender recommend.Sender
}

// Server wires HTTP handlers with the recommendation pipeline and run history.
type Server struct {
	db             *store.Database
	service        *recommend.Service
	notifier       *StateNotifier
	allowedOrigins []string
	limiter        *rate.Limiter
	defaultAPIKey  string
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	server := &Server{
		notifier:       NewStateNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		defaultAPIKey:  strings.TrimSpace(cfg.DefaultAPIKey),
	}
	if cfg.RateLimitPerMinute > 0 {
		server.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMinute)), cfg.RateLimitPerMinute)
	}

	serviceCfg := recommend.Config{
		Sender:   cfg.Sender,
		Observer: server.notifier.Broadcast,
	}
	if serviceCfg.Sender == nil {
		serviceCfg.Sender = ai.NewClient(cfg.Gemini)
	}

	if cfg.StoreDisabled {
		logrus.Info("run history disabled via configuration")
	} else {
		if strings.TrimSpace(cfg.StorePath) == "" {
			return nil, errors.New("store path required")
		}
		db, err := store.Open(cfg.StorePath, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
		server.db = db
		serviceCfg.History = db
	}

	server.service = recommend.NewService(serviceCfg)
	return server, nil
}

// Service exposes the underlying recommendation service.
func (s *Server) Service() *recommend.Service {
	return s.service
}

// Close releases the history database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	corsCfg := cors.DefaultConfig()
	if len(s.allowedOrigins) == 0 || (len(s.allowedOrigins) == 1 && s.allowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Goog-Api-Key"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)
		api.POST("/recommendations", s.rateLimit(), s.handleRecommend)
		api.GET("/recommendations/stream", s.handleStream)
		api.GET("/courses/popular", s.handlePopular)
		api.GET("/courses/:code/rationale", s.handleRationale)
		api.GET("/survey", s.handleSurvey)
		api.POST("/keywords", s.handleKeywords)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	state := recommend.StateIdle
	body := gin.H{
		"status":  "ok",
		"history": s.db != nil,
	}
	if last := s.notifier.LastEvent(); last != nil {
		state = last.State
		body["run_id"] = last.RunID
	}
	body["pipeline"] = state
	body["busy"] = state != recommend.StateIdle && !state.Terminal()
	c.JSON(http.StatusOK, body)
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.renderError(c, http.StatusTooManyRequests, errors.New("too many recommendation requests, try again shortly"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("http request")
	}
}

func (s *Server) handleStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if allowed == "*" || strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("state websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("state websocket closed")
			} else {
				logrus.WithError(err).Warn("state websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func parsePage(c *gin.Context) (offset, limit int) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 25
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page * pageSize, pageSize
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
