package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicportal/clinic/internal/feed"
	"github.com/clinicportal/clinic/internal/platform/auth"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a recipient's notification feed and print resolved links",
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			token, _ := cmd.Flags().GetString("token")
			signingKey, _ := cmd.Flags().GetString("signing-key")
			issuer, _ := cmd.Flags().GetString("issuer")
			role, _ := cmd.Flags().GetString("role")
			user, _ := cmd.Flags().GetString("user")
			mode, _ := cmd.Flags().GetString("mode")
			capacity, _ := cmd.Flags().GetInt("capacity")

			r := auth.Role(role)
			if !r.Valid() {
				return fmt.Errorf("--role must be admin, doctor, nurse or patient, got %q", role)
			}
			interval, err := modeInterval(mode)
			if err != nil {
				return err
			}
			if token == "" && signingKey != "" {
				token, err = auth.IssueToken(auth.JWTConfig{Issuer: issuer, SigningKey: []byte(signingKey)}, user, r)
				if err != nil {
					return fmt.Errorf("issue token: %w", err)
				}
			}

			logger := newLogger("development", "info")
			client := feed.NewClient(server, token)
			if token == "" {
				client.DevRole = role
				client.DevUser = user
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, client, r, interval, capacity, logger)
		},
	}
	cmd.Flags().String("server", "http://localhost:8000", "Clinic server base URL")
	cmd.Flags().String("token", "", "Bearer token")
	cmd.Flags().String("signing-key", os.Getenv("AUTH_SIGNING_KEY"), "HS256 key used to mint a token when --token is empty")
	cmd.Flags().String("issuer", os.Getenv("AUTH_ISSUER"), "Token issuer")
	cmd.Flags().String("role", "patient", "Recipient role")
	cmd.Flags().String("user", "dev-user", "Recipient user id")
	cmd.Flags().String("mode", "bell", "Polling mode: bell or badge")
	cmd.Flags().Int("capacity", feed.DefaultCapacity, "Entries kept in the local feed")
	return cmd
}

func modeInterval(mode string) (feed.Options, error) {
	switch mode {
	case "bell":
		return feed.Options{Interval: feed.BellInterval}, nil
	case "badge":
		return feed.Options{Interval: feed.BadgeInterval}, nil
	}
	return feed.Options{}, fmt.Errorf("--mode must be bell or badge, got %q", mode)
}

// runWatch polls until ctx is done, logging each entry once with its link.
func runWatch(ctx context.Context, client *feed.Client, role auth.Role, opts feed.Options, capacity int, logger zerolog.Logger) error {
	resolver := feed.NewResolver(client, logger)
	seen := make(map[int64]bool)
	lastUnread := -1

	opts.OnUpdate = func(entries []feed.Entry, unread int) {
		if unread != lastUnread {
			logger.Info().Int("unread", unread).Msg("unread count")
			lastUnread = unread
		}
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			target, deep := resolver.Resolve(ctx, e, role)
			logger.Info().
				Int64("id", e.ID).
				Str("type", e.Type).
				Bool("read", e.Read).
				Str("link", target.Path).
				Bool("deep_link", deep).
				Msg(e.Title)
		}
	}

	rec := feed.NewReconciler(feed.NewStore(capacity), client, client, opts, logger)
	logger.Info().Str("role", string(role)).Dur("interval", opts.Interval).Msg("watching feed")
	rec.Run(ctx)
	rec.Wait()
	return nil
}
