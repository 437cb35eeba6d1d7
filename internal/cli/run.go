package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/domainwatch/internal/presentation/tui"
	httpAdapter "github.com/aretw0/domainwatch/pkg/adapters/http"
	"github.com/aretw0/domainwatch/pkg/domain"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// RunOptions configures RunDaemon.
type RunOptions struct {
	Version string
	Out     io.Writer // challenge and banner output
	Banner  bool
}

// RunDaemon keeps the session up and serves the scheduler until ctx ends.
// A failed initial connection is logged and does not stop the process; the
// scheduler stays armed and retries the session before each send.
func RunDaemon(ctx context.Context, stack *Stack, opts RunOptions) error {
	logger := stack.Logger
	if opts.Banner {
		tui.PrintBanner(opts.Out, opts.Version)
	}

	sess := stack.NewSession(tui.NewChallengeRenderer(opts.Out))
	notifier := stack.NewNotifier(sess)
	sched, err := stack.NewScheduler(notifier)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := sess.Connect(gctx); err != nil && gctx.Err() == nil {
			logConnectFailure(logger, err)
		}
		return nil
	})

	g.Go(func() error {
		return sched.Run(gctx)
	})

	if addr := stack.Config.Listen; addr != "" {
		srv := &http.Server{
			Addr: addr,
			Handler: httpAdapter.NewHandler(sess, sched,
				httpAdapter.WithLogger(logger.With("component", "http")),
				httpAdapter.WithGatherer(stack.Registry),
				httpAdapter.WithVersion(opts.Version),
				httpAdapter.WithDomain(stack.Config.Domain),
			),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Status server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		logger.Warn("Session did not stop cleanly", "err", err)
	}
	return runErr
}

// logConnectFailure tells the operator whether the next send can recover on
// its own. Terminal failures need the stored credentials reset.
func logConnectFailure(logger *slog.Logger, err error) {
	if domain.IsTerminal(err) {
		logger.Error("Session rejected by the platform, run 'domainwatch session reset' and link again", "err", err)
		return
	}
	logger.Error("Initial session bring-up failed, will retry before the next send", "err", err)
}
