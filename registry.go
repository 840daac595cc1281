package docther

import (
	"context"
	"log"
	"sync"

	"github.com/docther/docther/pkg/mcp"
	"github.com/docther/docther/pkg/models"
)

// ToolServer is the slice of an MCP session the registry needs. *mcp.Client
// satisfies it; tests substitute stubs.
type ToolServer interface {
	Name() string
	ListTools(ctx context.Context) ([]mcp.ToolDefinition, error)
	CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.ToolResult, error)
}

type registryEntry struct {
	server ToolServer
	def    models.ToolDef
}

// Registry maps tool names to their owning servers. It is built once from the
// connected servers' listings; the first server to register a name owns it and
// later duplicates are skipped.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
	order   []string
}

// BuildRegistry aggregates the tool catalogs of the given servers. A server
// whose listing fails contributes nothing; the failure is logged and the
// remaining servers are still consulted.
func BuildRegistry(ctx context.Context, servers []ToolServer, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	r := &Registry{entries: make(map[string]registryEntry)}

	for _, server := range servers {
		if server == nil {
			continue
		}
		tools, err := server.ListTools(ctx)
		if err != nil {
			logger.Printf("registry: listing tools on %s: %v", server.Name(), err)
			continue
		}
		for _, def := range tools {
			if def.Name == "" {
				continue
			}
			if existing, dup := r.entries[def.Name]; dup {
				logger.Printf("registry: tool %s from %s already provided by %s, skipping",
					def.Name, server.Name(), existing.server.Name())
				continue
			}
			r.entries[def.Name] = registryEntry{
				server: server,
				def: models.ToolDef{
					Name:        def.Name,
					Description: def.Description,
					InputSchema: def.InputSchema,
				},
			}
			r.order = append(r.order, def.Name)
		}
	}
	return r
}

// Defs returns the aggregated tool definitions in registration order, ready
// to hand to the model.
func (r *Registry) Defs() []models.ToolDef {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]models.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entries[name].def)
	}
	return defs
}

// Lookup resolves a tool name to its owning server.
func (r *Registry) Lookup(name string) (ToolServer, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.server, true
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len reports the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
