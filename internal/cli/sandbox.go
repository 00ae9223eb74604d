package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/roster/internal/app"
	"github.com/five82/roster/internal/sandbox"
)

const shutdownTimeout = 5 * time.Second

func newSandboxCommand(flags *globalFlags) *cobra.Command {
	var (
		addr     string
		basePath string
		apiKey   string
	)

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory users API for offline use",
		Long: fmt.Sprintf(`Serve a reqres-compatible users API from memory: 12 seeded users, 6 per
page. Log in with %s / %s.

Point the console at it with:
  roster --api http://localhost:8080/api`, sandbox.DemoEmail, sandbox.DemoPassword),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := flags.options()
			opts.LogStderr = true
			env, err := app.Bootstrap(opts)
			if err != nil {
				return err
			}
			defer env.Close()

			srv := sandbox.New(sandbox.Options{
				BasePath: basePath,
				APIKey:   apiKey,
				Logger:   env.Logger,
			})
			return serve(cmd.Context(), cmd, addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/api", "path prefix of the API")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "require this x-api-key header when set")
	return cmd
}

// serve runs handler on addr until ctx is cancelled, then shuts down.
func serve(ctx context.Context, cmd *cobra.Command, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "sandbox listening on http://%s\n", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown sandbox: %w", err)
	}
	return nil
}
