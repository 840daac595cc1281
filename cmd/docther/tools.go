package main

import (
	"fmt"

	"github.com/spf13/cobra"

	docther "github.com/docther/docther"
)

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the configured MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(a.cfg.ToolServers) == 0 {
				fmt.Println("No tool servers configured.")
				return nil
			}

			clients, closeAll := a.connectServers(ctx)
			defer closeAll()
			if len(clients) == 0 {
				return fmt.Errorf("no tool server could be connected")
			}

			servers := make([]docther.ToolServer, 0, len(clients))
			for _, client := range clients {
				servers = append(servers, client)
			}
			registry := docther.BuildRegistry(ctx, servers, a.logger)

			for _, def := range registry.Defs() {
				server, _ := registry.Lookup(def.Name)
				fmt.Printf("%-28s %-24s %s\n", def.Name, server.Name(), def.Description)
			}
			return nil
		},
	}
}
