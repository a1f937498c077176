package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/services"
)

const (
	requestIDHeader     = "X-Request-ID"
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	limiter *rate.Limiter
	engine  *gin.Engine

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	if cfg.API.SubmitRatePerSecond > 0 {
		srv.limiter = rate.NewLimiter(rate.Limit(cfg.API.SubmitRatePerSecond), max(cfg.API.SubmitBurst, 1))
	}
	srv.engine = srv.routes(cfg.API.Token)
	srv.server = &http.Server{
		Handler:           srv.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) routes(token string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestContext())

	group := engine.Group("/api", authMiddleware(token))
	group.GET("/progress", s.handleProgress)
	group.GET("/status", s.handleStatus)
	group.GET("/history", s.handleHistory)
	group.POST("/jobs", s.submitLimit(), s.handleSubmit)
	return engine
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "api_server_failed"),
				logging.String(logging.FieldErrorHint, "check api.bind and restart the daemon"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_server_started"),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// requestContext tags each request with a correlation ID and logs it.
func (s *apiServer) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), requestID))

		started := time.Now()
		c.Next()
		logging.WithContext(c.Request.Context(), s.logger).Debug("api request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(started)),
		)
	}
}

// submitLimit throttles job submission; reads are never limited.
func (s *apiServer) submitLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{
				Code:    "RATE_LIMITED",
				Message: "too many submissions; retry shortly",
			})
			return
		}
		c.Next()
	}
}

func (s *apiServer) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, api.FromState(s.daemon.Progress()))
}

func (s *apiServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusDTO(s.daemon.Status()))
}

func (s *apiServer) handleHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(c, http.StatusBadRequest, "INVALID_INPUT", "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	entries, enabled, err := s.daemon.History(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, http.StatusInternalServerError, "HISTORY_UNAVAILABLE", err.Error())
		return
	}
	c.JSON(http.StatusOK, api.HistoryResponse{Enabled: enabled, Entries: api.FromHistory(entries)})
}

func (s *apiServer) handleSubmit(c *gin.Context) {
	// Browsers send text/plain and form bodies cross-origin without a
	// preflight; only JSON is accepted so those can never queue a job.
	if c.ContentType() != gin.MIMEJSON {
		s.writeError(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "request body must be application/json")
		return
	}
	var req api.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, "INVALID_INPUT", "request body must be JSON with inputPath")
		return
	}
	job, err := s.daemon.Submit(c.Request.Context(), req.InputPath, req.OutputPath)
	if err != nil {
		status, code := submitErrorStatus(err)
		s.writeError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, api.SubmitResponse{Job: api.FromJob(job)})
}

func submitErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "QUEUE_FULL"
	case errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "SHUTTING_DOWN"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "CANCELLED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (s *apiServer) writeError(c *gin.Context, status int, code, message string) {
	if status >= http.StatusInternalServerError {
		logging.WithContext(c.Request.Context(), s.logger).Warn("api request failed",
			logging.String("path", c.FullPath()),
			logging.Int("status", status),
			logging.String("error", message),
			logging.String(logging.FieldEventType, "api_request_failed"),
		)
	}
	c.AbortWithStatusJSON(status, api.ErrorResponse{Code: code, Message: message})
}

// StatusDTO converts daemon status for transport.
func StatusDTO(status Status) api.DaemonStatus {
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		LockFilePath: status.LockFilePath,
		LogPath:      status.LogPath,
		HistoryPath:  status.HistoryPath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencies(status.Dependencies),
	}
}
