package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mw "github.com/kiranshivaraju/triage/internal/api/middleware"
	"github.com/kiranshivaraju/triage/internal/store"
)

func newAPIKeyCmd(d deps, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for the triage server",
	}
	cmd.PersistentFlags().String("database-url", "", "Postgres URL (default: $DATABASE_URL)")
	_ = v.BindPFlag("database-url", cmd.PersistentFlags().Lookup("database-url"))
	_ = v.BindEnv("database-url", "DATABASE_URL")

	cmd.AddCommand(
		newAPIKeyCreateCmd(d, v),
		newAPIKeyListCmd(d, v),
		newAPIKeyRevokeCmd(d, v),
	)
	return cmd
}

func withStore(ctx context.Context, d deps, v *viper.Viper, fn func(store.Store) error) error {
	url := v.GetString("database-url")
	if url == "" {
		return errors.New("DATABASE_URL is required")
	}
	s, closeFn, err := d.openStore(ctx, url)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(s)
}

func newAPIKeyCreateCmd(d deps, v *viper.Viper) *cobra.Command {
	var (
		name   string
		scopes []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, key, err := mw.NewAPIKey(name, scopes, d.now())
			if err != nil {
				return err
			}
			err = withStore(cmd.Context(), d, v, func(s store.Store) error {
				return s.CreateAPIKey(cmd.Context(), key)
			})
			if err != nil {
				return fmt.Errorf("create api key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "API key created. Store it now; it cannot be shown again.")
			fmt.Fprintf(out, "  key:    %s\n", raw)
			fmt.Fprintf(out, "  id:     %s\n", key.ID)
			fmt.Fprintf(out, "  scopes: %s\n", strings.Join(key.Scopes, ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "human-readable key name (required)")
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil,
		fmt.Sprintf("comma-separated scopes: %s, %s, %s (default %s,%s)",
			mw.ScopeTriage, mw.ScopeRuns, mw.ScopeAdmin, mw.ScopeTriage, mw.ScopeRuns))
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAPIKeyListCmd(d deps, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), d, v, func(s store.Store) error {
				keys, err := s.ListAPIKeys(cmd.Context())
				if err != nil {
					return fmt.Errorf("list api keys: %w", err)
				}

				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Name", "Prefix", "Scopes", "Last used", "Created"})
				for _, k := range keys {
					lastUsed := "-"
					if k.LastUsedAt != nil {
						lastUsed = k.LastUsedAt.UTC().Format("2006-01-02 15:04")
					}
					tw.AppendRow(table.Row{
						k.ID, k.Name, k.KeyPrefix, strings.Join(k.Scopes, ","),
						lastUsed, k.CreatedAt.UTC().Format("2006-01-02 15:04"),
					})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func newAPIKeyRevokeCmd(d deps, v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <key-id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid key id %q: %w", args[0], err)
			}
			return withStore(cmd.Context(), d, v, func(s store.Store) error {
				if err := s.RevokeAPIKey(cmd.Context(), id); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("api key %s not found", id)
					}
					return fmt.Errorf("revoke api key: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "API key %s revoked.\n", id)
				return nil
			})
		},
	}
}
