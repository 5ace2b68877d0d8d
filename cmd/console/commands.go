package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"messagemaster/internal/alerts"
	"messagemaster/internal/api"
	"messagemaster/internal/notify"
	"messagemaster/internal/policy"
	"messagemaster/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "console",
		Short:         "MessageMaster admin console",
		Version:       version.Current().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), loginCmd(), logoutCmd(), whoamiCmd(), watchCmd())
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the console pages over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := openApp(ctx, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			a.followSession(ctx)

			cfg := a.cfg
			hsrv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           api.NewRouter(api.Deps{Config: cfg, Service: a.svc, Gateway: a.client, Session: a.sess, Alerts: a.poller}),
				ReadTimeout:       time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
				ReadHeaderTimeout: time.Duration(cfg.HTTPReadHeaderTimeoutSec) * time.Second,
				WriteTimeout:      time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
				IdleTimeout:       time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				log.Printf("listening on %s backend=%s", cfg.ListenAddr, cfg.APIBaseURL)
				if err := hsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()
			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			log.Printf("shutting down")
			return hsrv.Shutdown(shutdownCtx)
		},
	}
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := openApp(ctx, notify.Silent{})
			if err != nil {
				return err
			}
			defer a.Close()
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			id, err := a.client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s). Home: %s\n", id.Email, id.Role, policy.DefaultRouteFor(id.Role))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := openApp(ctx, notify.Silent{})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.client.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in identity and menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			a, err := openApp(ctx, notify.Silent{})
			if err != nil {
				return err
			}
			defer a.Close()
			id, ok := a.sess.Active(ctx)
			if !ok {
				return errors.New("not signed in")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			view, err := a.svc.Shell(ctx, id)
			if err != nil {
				return err
			}
			return enc.Encode(view)
		},
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll announcements and notifications, ringing on new ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			out := cmd.OutOrStdout()
			a, err := openApp(ctx, notify.NewTerminalBell(out))
			if err != nil {
				return err
			}
			defer a.Close()
			if _, ok := a.sess.Active(ctx); !ok {
				return errors.New("not signed in; run console login first")
			}
			a.followSession(ctx)

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			var seen snapshotMark
			for {
				snap := a.poller.Snapshot()
				if seen.advance(snap) {
					printSnapshot(cmd, snap)
				}
				if !a.poller.Running() {
					return errors.New("session ended")
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}

// snapshotMark remembers the last snapshot printed by watch.
type snapshotMark struct {
	polledAt time.Time
	lastErr  string
}

// advance reports whether snap differs from the last one seen and records it.
func (m *snapshotMark) advance(snap alerts.Snapshot) bool {
	if snap.PolledAt.Equal(m.polledAt) && snap.LastError == m.lastErr {
		return false
	}
	m.polledAt, m.lastErr = snap.PolledAt, snap.LastError
	return true
}

func printSnapshot(cmd *cobra.Command, snap alerts.Snapshot) {
	out := cmd.OutOrStdout()
	if snap.LastError != "" {
		fmt.Fprintf(out, "[%s] poll failed: %s\n", snap.PolledAt.Format(time.Kitchen), snap.LastError)
		return
	}
	fmt.Fprintf(out, "[%s] %d unread (%d announcements, %d notifications)\n",
		snap.PolledAt.Format(time.Kitchen), snap.Unread, snap.Announcements, snap.Notifications)
	for _, it := range snap.Items {
		text := it.Message
		if it.Title != "" {
			text = it.Title + ": " + it.Message
		}
		fmt.Fprintf(out, "  - %s %s\n", it.Kind, text)
	}
}
