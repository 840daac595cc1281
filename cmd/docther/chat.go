package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	docther "github.com/docther/docther"
	"github.com/docther/docther/pkg/store"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		userEmail    string
		sessionTitle string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the assistant. Configured MCP tool
servers are spawned and their tools offered to the model. With a database and
--user, the conversation and every tool invocation are persisted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd.Context(), userEmail, sessionTitle)
		},
	}
	cmd.Flags().StringVar(&userEmail, "user", "", "email of the user to record the session under")
	cmd.Flags().StringVar(&sessionTitle, "title", "", "title for the persisted chat session")
	return cmd
}

func (a *app) runChat(ctx context.Context, userEmail, sessionTitle string) error {
	chat, err := a.newChat()
	if err != nil {
		return err
	}

	clients, closeAll := a.connectServers(ctx)
	defer closeAll()
	if len(a.cfg.ToolServers) > 0 && len(clients) == 0 {
		return errors.New("no tool server could be connected")
	}

	servers := make([]docther.ToolServer, 0, len(clients))
	for _, client := range clients {
		servers = append(servers, client)
	}
	registry := docther.BuildRegistry(ctx, servers, a.logger)

	orch, err := docther.NewOrchestrator(docther.Options{
		Chat:          chat,
		Registry:      registry,
		SystemPrompt:  docther.DefaultSystemPrompt,
		HistoryWindow: a.cfg.Model.HistoryWindow,
		Logger:        a.logger,
	})
	if err != nil {
		return err
	}

	st, err := a.openStore(ctx, false)
	if err != nil {
		return err
	}
	var session *store.ChatSession
	if st != nil {
		defer st.Close()
		if userEmail != "" {
			user, err := resolveUser(ctx, st, userEmail)
			if err != nil {
				return err
			}
			if sessionTitle == "" {
				sessionTitle = "Chat " + time.Now().Format("2006-01-02") + " " + uuid.NewString()[:8]
			}
			session, err = st.CreateSession(ctx, user.ID, sessionTitle)
			if err != nil {
				return err
			}
			if err := st.UpdateLastLogin(ctx, user.ID); err != nil {
				a.logger.Printf("updating last login: %v", err)
			}
		}
	}

	fmt.Println("DoctHER — women's health assistant")
	if n := registry.Len(); n > 0 {
		fmt.Printf("%d tools available: %s\n", n, strings.Join(registry.Names(), ", "))
	} else {
		fmt.Println("No tool servers connected; answering from the model alone.")
	}
	fmt.Println(`Type "help" for commands, "quit" to leave.`)

	conv := docther.NewConversation()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\nYou: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			fmt.Println("Take care!")
			return nil
		case "clear":
			conv.Clear()
			fmt.Println("Conversation cleared.")
			continue
		case "help":
			fmt.Println("Commands: quit, exit, clear, help. Anything else is sent to the assistant.")
			continue
		}

		result, err := orch.Respond(ctx, conv, line)
		if err != nil {
			a.logger.Printf("turn failed: %v", err)
			continue
		}

		for _, call := range result.ToolCalls {
			status := "ok"
			if call.IsError {
				status = "error"
			}
			fmt.Printf("  [%s/%s %s in %s]\n", call.Server, call.Tool, status, call.Duration.Round(time.Millisecond))
		}
		fmt.Printf("\nDoctHER: %s\n", result.Answer)

		if session != nil {
			a.persistTurn(ctx, st, session.ID, line, result)
		}
	}
}

// persistTurn records the user message, the assistant answer and the tool
// invocations behind it. Persistence failures must not kill the session.
func (a *app) persistTurn(ctx context.Context, st store.Store, sessionID int64, userText string, result *docther.TurnResult) {
	if _, err := st.AddMessage(ctx, sessionID, "user", userText); err != nil {
		a.logger.Printf("persisting user message: %v", err)
		return
	}
	msg, err := st.AddMessage(ctx, sessionID, "assistant", result.Answer)
	if err != nil {
		a.logger.Printf("persisting assistant message: %v", err)
		return
	}
	for _, call := range result.ToolCalls {
		if _, err := st.AddToolLog(ctx, msg.ID, call.Tool, string(call.Input), call.Output); err != nil {
			a.logger.Printf("persisting tool log for %s: %v", call.Tool, err)
		}
	}
}
