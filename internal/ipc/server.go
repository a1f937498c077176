package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"scribe/internal/api"
	"scribe/internal/daemon"
	"scribe/internal/logging"
	"scribe/internal/logs"
	"scribe/internal/queue"
	"scribe/internal/services"
	"scribe/internal/workflow"
)

const (
	serviceName         = "Scribe"
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	stopReplyGrace      = 100 * time.Millisecond
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server
	svc       *service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. stopTimeout
// is applied to Stop requests that do not carry their own timeout.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, stopTimeout time.Duration, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ipc")

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	svc := &service{
		daemon:        d,
		logger:        logger,
		ctx:           serverCtx,
		stopTimeout:   stopTimeout,
		stopRequested: make(chan struct{}),
	}
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName(serviceName, svc); err != nil {
		cancel()
		_ = listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		svc:       svc,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"),
				)
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// StopRequested is closed once a Stop RPC has finished stopping the daemon.
func (s *Server) StopRequested() <-chan struct{} {
	return s.svc.stopRequested
}

// Close stops the server and removes the socket file. Open client
// connections are closed by the clients themselves.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually or rerun scribe stop"),
		)
	}
}

// Wait blocks until the accept loop and every open connection have ended.
func (s *Server) Wait() {
	s.wg.Wait()
}

type service struct {
	daemon      *daemon.Daemon
	logger      *slog.Logger
	ctx         context.Context
	stopTimeout time.Duration

	stopOnce      sync.Once
	stopRequested chan struct{}
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	job, err := s.daemon.Submit(s.ctx, req.InputPath, req.OutputPath)
	if err != nil {
		resp.Accepted = false
		resp.Code = submitCode(err)
		resp.Message = err.Error()
		return nil
	}
	resp.Accepted = true
	resp.Code = CodeAccepted
	resp.Job = api.FromJob(job)
	return nil
}

func submitCode(err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return CodeInvalidInput
	case errors.Is(err, queue.ErrFull):
		return CodeQueueFull
	case errors.Is(err, queue.ErrClosed):
		return CodeShuttingDown
	default:
		return CodeInternal
	}
}

func (s *service) Progress(_ ProgressRequest, resp *ProgressResponse) error {
	resp.Progress = api.FromState(s.daemon.Progress())
	return nil
}

func (s *service) Stop(req StopRequest, resp *StopResponse) error {
	timeout := s.stopTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	if req.Force {
		timeout = 0
	}
	s.logger.Info("daemon stop requested via IPC",
		logging.Duration("timeout", timeout),
		logging.Bool("force", req.Force),
		logging.String(logging.FieldEventType, "daemon_stop_requested"),
	)

	res, err := s.daemon.Stop(timeout)
	resp.Summary = api.FromStopResult(res)
	switch {
	case err == nil:
		resp.Stopped = true
		resp.Message = "worker drained"
	case errors.Is(err, workflow.ErrForcedTermination):
		resp.Stopped = true
		resp.Message = err.Error()
	default:
		return err
	}
	// net/rpc writes the reply after this method returns; give it a moment
	// before the daemon process is allowed to exit.
	time.AfterFunc(stopReplyGrace, func() {
		s.stopOnce.Do(func() { close(s.stopRequested) })
	})
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = daemon.StatusDTO(s.daemon.Status())
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	entries, enabled, err := s.daemon.History(s.ctx, min(limit, maxHistoryLimit))
	if err != nil {
		return err
	}
	resp.Enabled = enabled
	resp.Entries = api.FromHistory(entries)
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset:   req.Offset,
		Limit:    req.Limit,
		Follow:   req.Follow,
		Wait:     wait,
		Contains: req.Contains,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
