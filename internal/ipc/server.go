package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"platter/internal/array"
	"platter/internal/daemon"
	"platter/internal/logging"
	"platter/internal/logs"
	"platter/internal/services"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Platter", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
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
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
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

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun platter daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

// rpcError renders an error as "<code>: <message>" so the client side can
// restore the sentinel after net/rpc flattens it to a string.
func rpcError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %s", services.Code(err), err.Error())
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Backend = string(status.Backend)
	resp.PoolConfigured = status.PoolConfigured
	resp.DiskCount = status.DiskCount
	resp.SocketPath = status.SocketPath
	resp.LockPath = status.LockPath
	resp.LogPath = status.LogPath
	resp.JournalPath = status.JournalPath
	resp.HotplugActive = status.HotplugActive
	resp.ScheduleActive = status.ScheduleActive
	resp.Dependencies = status.Dependencies
	resp.Operations = status.Operations
	return nil
}

func (s *service) Disks(_ DiskListRequest, resp *DiskListResponse) error {
	disks, err := s.daemon.Appliance().DiskInventory()
	if err != nil {
		return rpcError(err)
	}
	resp.Disks = disks
	return nil
}

func (s *service) PoolSubmit(req PoolSubmitRequest, resp *PoolSubmitResponse) error {
	s.log().Info("pool configuration submitted via IPC",
		logging.String(logging.FieldEventType, "pool_submit"),
		logging.Int("disk_count", len(req.Disks)))
	result, err := s.daemon.Appliance().SubmitPoolConfiguration(s.ctx, req.Disks)
	if err != nil {
		return rpcError(err)
	}
	resp.Result = result
	return nil
}

func (s *service) PoolShow(_ PoolShowRequest, resp *PoolShowResponse) error {
	app := s.daemon.Appliance()
	current := app.PoolConfig()
	resp.Backend = string(app.Backend())
	resp.Configured = current.PoolConfigured
	resp.PoolMount = s.daemon.Status().PoolMount
	resp.Disks = current.StorageConfig
	return nil
}

func (s *service) SyncStart(_ SyncStartRequest, resp *SyncStartResponse) error {
	runID, err := s.daemon.Appliance().StartSync(s.ctx)
	if err != nil {
		return rpcError(err)
	}
	resp.RunID = runID
	resp.Status = s.daemon.Appliance().SyncStatus()
	return nil
}

func (s *service) SyncStatus(_ SyncStatusRequest, resp *SyncStatusResponse) error {
	resp.Status = s.daemon.Appliance().SyncStatus()
	return nil
}

func (s *service) ScrubRun(_ ScrubRunRequest, resp *ScrubRunResponse) error {
	status, err := s.daemon.Appliance().RunScrub(s.ctx)
	if err != nil {
		return rpcError(err)
	}
	resp.Status = status
	return nil
}

func (s *service) ScrubStatus(_ ScrubStatusRequest, resp *ScrubStatusResponse) error {
	resp.Status = s.daemon.Appliance().ScrubStatus()
	return nil
}

func (s *service) CheckStart(_ CheckStartRequest, resp *CheckStartResponse) error {
	runID, err := s.daemon.Appliance().StartParityCheck(s.ctx)
	if err != nil {
		return rpcError(err)
	}
	resp.RunID = runID
	return nil
}

func (s *service) CheckStatus(_ CheckStatusRequest, resp *CheckStatusResponse) error {
	resp.Status = s.daemon.Appliance().ParityCheckStatus()
	return nil
}

func (s *service) ArrayConfigure(req ArrayConfigureRequest, resp *ArrayConfigureResponse) error {
	s.log().Info("array configuration submitted via IPC",
		logging.String(logging.FieldEventType, "array_configure"),
		logging.Int("disk_count", len(req.DataDisks)+1))
	runID, err := s.daemon.Appliance().StartArrayConfigure(s.ctx, array.Request{
		DataDisks:  req.DataDisks,
		ParityDisk: req.ParityDisk,
		ShareMode:  req.ShareMode,
	})
	if err != nil {
		return rpcError(err)
	}
	resp.RunID = runID
	return nil
}

func (s *service) ArrayProgress(_ ArrayProgressRequest, resp *ArrayProgressResponse) error {
	resp.Status = s.daemon.Appliance().ArrayConfigureProgress()
	return nil
}

func (s *service) ArrayStart(_ ArrayStartRequest, resp *ArrayStartResponse) error {
	if err := s.daemon.Appliance().StartArray(s.ctx); err != nil {
		return rpcError(err)
	}
	resp.Started = true
	return nil
}

func (s *service) ArrayStop(_ ArrayStopRequest, resp *ArrayStopResponse) error {
	if err := s.daemon.Appliance().StopArray(s.ctx); err != nil {
		return rpcError(err)
	}
	resp.Stopped = true
	return nil
}

func (s *service) ArrayStatus(_ ArrayStatusRequest, resp *ArrayStatusResponse) error {
	status, err := s.daemon.Appliance().ArrayStatus(s.ctx)
	if err != nil {
		return rpcError(err)
	}
	resp.Status = status
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if err := s.daemon.Appliance().CancelOperation(req.Kind); err != nil {
		return rpcError(err)
	}
	resp.Cancelled = true
	s.log().Info("operation cancelled via IPC",
		logging.String(logging.FieldEventType, "operation_cancel"),
		logging.String(logging.FieldOperation, req.Kind))
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	runs, err := s.daemon.Appliance().OperationHistory(s.ctx, req.Limit)
	if err != nil {
		return rpcError(err)
	}
	resp.Runs = runs
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	request := logs.Request{
		Cursor: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Cursor
			return nil
		}
		return rpcError(err)
	}
	resp.Lines = result.Lines
	resp.Offset = result.Cursor
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.log().Info("shutdown requested via IPC",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	s.daemon.RequestShutdown()
	resp.Stopping = true
	return nil
}
