package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"momoapi/internal/client"
	"momoapi/internal/shared"

	"github.com/spf13/cobra"
)

// session is filled by the root's PersistentPreRunE before any subcommand runs.
type session struct {
	configPath string
	serverURL  string

	client  *client.Client
	timeout time.Duration
}

func initRootCommand(m *cobra.Command) {
	s := &session{}
	m.PersistentFlags().StringVarP(&s.configPath, "config", "c", "", "optional TOML client config")
	m.PersistentFlags().StringVar(&s.serverURL, "server", "", "server URL (overrides MOMO_SERVER_URL)")
	m.PersistentPreRunE = s.connect

	m.AddCommand(
		s.newListCommand(),
		s.newGetCommand(),
		s.newCreateCommand(),
		s.newUpdateCommand(),
		s.newDeleteCommand(),
	)
}

func (s *session) connect(_ *cobra.Command, _ []string) error {
	cfg, err := shared.LoadClientConfig(s.configPath)
	if err != nil {
		return err
	}
	if s.serverURL != "" {
		cfg.ServerURL = s.serverURL
	}
	s.client = client.New(cfg)
	s.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	return nil
}

func (s *session) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *session) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := s.requestContext(cmd)
			defer cancel()
			records, err := s.client.List(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
}

func (s *session) newGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get id",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := s.requestContext(cmd)
			defer cancel()
			rec, err := s.client.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func (s *session) newCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create '<json object>'",
		Short: "Create a transaction; the server assigns the id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parseRecord(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := s.requestContext(cmd)
			defer cancel()
			created, err := s.client.Create(ctx, rec)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
}

func (s *session) newUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update id '<json object>'",
		Short: "Replace a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			ctx, cancel := s.requestContext(cmd)
			defer cancel()
			updated, err := s.client.Update(ctx, id, rec)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), updated)
		},
	}
}

func (s *session) newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete id",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := s.requestContext(cmd)
			defer cancel()
			if err := s.client.Delete(ctx, id); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), shared.DeleteResponse{Status: "deleted", ID: id})
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// parseRecord accepts one JSON object and keeps numbers exact.
func parseRecord(arg string) (shared.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(arg)))
	dec.UseNumber()
	var rec shared.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("invalid json object: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("invalid json object: %s", arg)
	}
	return rec, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
