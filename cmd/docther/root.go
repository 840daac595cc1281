package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/docther/docther/pkg/config"
	"github.com/docther/docther/pkg/mcp"
	"github.com/docther/docther/pkg/models"
	"github.com/docther/docther/pkg/store"
)

// app carries the loaded configuration and shared logger across subcommands.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: log.New(os.Stderr, "docther ", log.LstdFlags)}
	var cfgPath string

	root := &cobra.Command{
		Use:           "docther",
		Short:         "AI women's health assistant with MCP tool orchestration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a docther.yaml config file")

	root.AddCommand(
		newChatCmd(a),
		newSymptomCmd(a),
		newUserCmd(a),
		newInitDBCmd(a),
		newToolsCmd(a),
	)

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	return root
}

// newChat builds the Anthropic chat backend from configuration.
func (a *app) newChat() (models.Chat, error) {
	temp := a.cfg.Model.Temperature
	return models.NewAnthropicChat(models.AnthropicOptions{
		APIKey:      a.cfg.Model.AnthropicAPIKey,
		Model:       a.cfg.Model.Name,
		MaxTokens:   a.cfg.Model.MaxTokens,
		Temperature: &temp,
	})
}

// openStore connects to Postgres when a database URL is configured. required
// commands pass required=true and get an error instead of a nil store.
func (a *app) openStore(ctx context.Context, required bool) (store.Store, error) {
	if a.cfg.DatabaseURL == "" {
		if required {
			return nil, errors.New("no database configured: set database_url or DATABASE_URL")
		}
		return nil, nil
	}
	return store.NewPostgresStore(ctx, a.cfg.DatabaseURL)
}

// connectServers spawns and connects every configured MCP tool server. A
// server that fails to parse, spawn or handshake is logged and skipped; the
// caller decides whether an empty result is fatal.
func (a *app) connectServers(ctx context.Context) ([]*mcp.Client, func()) {
	var clients []*mcp.Client
	for _, line := range a.cfg.ToolServers {
		command, args, err := mcp.ParseCommand(line)
		if err != nil {
			a.logger.Printf("tool server %q: %v", line, err)
			continue
		}
		client, err := mcp.NewClient(mcp.Options{
			Command: command,
			Args:    args,
			Logger:  a.logger,
		})
		if err != nil {
			a.logger.Printf("tool server %q: %v", line, err)
			continue
		}
		if err := client.Connect(ctx); err != nil {
			a.logger.Printf("tool server %q: connect: %v", line, err)
			continue
		}
		a.logger.Printf("connected to %s", client.Name())
		clients = append(clients, client)
	}

	closeAll := func() {
		shutdownCtx := context.Background()
		for _, client := range clients {
			client.Close(shutdownCtx)
		}
	}
	return clients, closeAll
}

// resolveUser looks up the acting user by email, required by the symptom
// commands.
func resolveUser(ctx context.Context, st store.Store, email string) (*store.User, error) {
	if email == "" {
		return nil, errors.New("--user is required")
	}
	user, err := st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no user with email %s, create one with: docther user create", email)
	}
	return user, err
}
