package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pluqqy/editbridge/internal/cli"
	"github.com/pluqqy/editbridge/pkg/editor"
	"github.com/pluqqy/editbridge/pkg/models"
	"github.com/pluqqy/editbridge/pkg/router"
	"github.com/pluqqy/editbridge/pkg/transport/wschannel"
)

var (
	serveAddr string
	servePath string
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept editing surfaces over a websocket and log their traffic",
		Long: `Listen for content surfaces connecting over a websocket. Every connection
gets its own editor session with its own resource work area. The
delegate calls of each session are printed as they happen; run with
--verbose to also log every command and event.

Examples:
  editbridge serve
  editbridge serve --addr :9000 --path /bridge`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8765", "Address to listen on")
	cmd.Flags().StringVar(&servePath, "path", "/surface", "Websocket endpoint path")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := newSessionServer(ctx, cc.Settings, cc.Logger, cmd.OutOrStdout())
	mux := http.NewServeMux()
	mux.Handle(servePath, sessions)

	server := &http.Server{
		Addr:              serveAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()
	cli.FprintInfo(cmd.OutOrStdout(), "Listening on ws://%s%s", serveAddr, servePath)

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cc.Logger.Warn("shutdown incomplete", zap.Error(err))
	}
	sessions.Wait()
	cli.FprintSuccess(cmd.OutOrStdout(), "Stopped after %d session(s)", sessions.Count())
	return nil
}

// sessionServer runs one editor per accepted websocket connection
type sessionServer struct {
	ctx      context.Context
	settings *models.Settings
	logger   *zap.Logger

	mu    sync.Mutex
	out   io.Writer
	count int

	wg sync.WaitGroup
}

func newSessionServer(ctx context.Context, settings *models.Settings, logger *zap.Logger, out io.Writer) *sessionServer {
	return &sessionServer{
		ctx:      ctx,
		settings: settings,
		logger:   logger.Named("serve"),
		out:      out,
	}
}

func (s *sessionServer) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *sessionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := models.NewID()
	logger := s.logger.With(zap.String("session", id))

	ch, err := wschannel.Accept(s.ctx, w, r, wschannel.WithLogger(logger))
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	recorder := &router.Recorder{
		OnRecord: func(entry router.Entry) { s.printf("%s %s\n", id, entry) },
	}
	e := editor.New(ch,
		editor.WithLogger(logger),
		editor.WithSettings(s.settings),
		editor.WithDelegate(recorder),
		editor.WithSessionID(id),
	)
	ch.Attach(func(payload string) { e.Receive(payload) })

	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.printf("%s connected from %s\n", id, r.RemoteAddr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runCtx, cancel := context.WithCancel(s.ctx)
		go func() {
			select {
			case <-ch.Done():
				cancel()
			case <-runCtx.Done():
			}
		}()
		if err := e.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("editor loop stopped", zap.Error(err))
		}
		cancel()
		ch.Close()
		e.Close()
		s.printf("%s disconnected after %d call(s)\n", id, len(recorder.Entries()))
	}()
}

// Wait blocks until every session has ended
func (s *sessionServer) Wait() {
	s.wg.Wait()
}

// Count returns how many sessions were accepted
func (s *sessionServer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
