// Command pubmedserver exposes PubMed literature search as an MCP tool server
// over stdio, backed by the NCBI E-utilities API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/docther/docther/pkg/mcp"
	"github.com/docther/docther/pkg/pubmed"
)

const (
	serverVersion = "1.0.0"
	maxSearchHits = 100
)

func main() {
	logger := log.New(os.Stderr, "pubmedserver ", log.LstdFlags)

	client := pubmed.NewClient(pubmed.Options{APIKey: os.Getenv("NCBI_API_KEY")})

	server := mcp.NewServer("pubmed-research", serverVersion, logger)
	if err := registerTools(server, client); err != nil {
		logger.Fatalf("registering tools: %v", err)
	}

	if err := server.Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}

func registerTools(server *mcp.Server, client *pubmed.Client) error {
	if err := server.Register(mcp.ToolDefinition{
		Name:        "search_pubmed",
		Description: "Search PubMed for peer-reviewed articles matching a query and return summaries with PMIDs, authors, journal and publication date.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Search query, e.g. 'AMH menopause prediction'"},
				"max_results": {"type": "integer", "description": "Maximum number of results (default 10, max 100)"}
			},
			"required": ["query"]
		}`),
	}, searchHandler(client)); err != nil {
		return err
	}

	return server.Register(mcp.ToolDefinition{
		Name:        "get_article",
		Description: "Retrieve the full abstract and details of a PubMed article by PMID.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pmid": {"type": "string", "description": "PubMed ID of the article"}
			},
			"required": ["pmid"]
		}`),
	}, articleHandler(client))
}

func searchHandler(client *pubmed.Client) mcp.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
		var in struct {
			Query      string `json:"query"`
			MaxResults int    `json:"max_results"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		if in.MaxResults <= 0 {
			in.MaxResults = 10
		}
		if in.MaxResults > maxSearchHits {
			in.MaxResults = maxSearchHits
		}

		result, err := client.Search(ctx, in.Query, in.MaxResults)
		if err != nil {
			return nil, err
		}
		summaries, err := client.Summaries(ctx, result.PMIDs)
		if err != nil {
			return nil, err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d articles for query: '%s'\n\n", result.Count, result.Query)
		fmt.Fprintf(&b, "Showing top %d results:\n\n", len(summaries))
		for i, summary := range summaries {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, summary.Title)
			fmt.Fprintf(&b, "   - PMID: %s\n", summary.PMID)
			b.WriteString("   - Authors: " + joinAuthors(summary.Authors) + "\n")
			fmt.Fprintf(&b, "   - Journal: %s\n", summary.Journal)
			fmt.Fprintf(&b, "   - Published: %s\n", summary.PubDate)
			if summary.DOI != "" {
				fmt.Fprintf(&b, "   - DOI: %s\n", summary.DOI)
			}
			b.WriteString("\n")
		}
		b.WriteString("\nUse the 'get_article' tool with a PMID to retrieve the full abstract and details.")

		return mcp.TextResult(b.String()), nil
	}
}

func articleHandler(client *pubmed.Client) mcp.ToolHandler {
	return func(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
		var in struct {
			PMID string `json:"pmid"`
		}
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}

		article, err := client.Fetch(ctx, in.PMID)
		if err != nil {
			return nil, err
		}
		if article.Title == "" {
			return mcp.ErrorResult(fmt.Sprintf("no article found for PMID %s", in.PMID)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n\n", article.Title)
		fmt.Fprintf(&b, "PMID: %s\n", article.PMID)
		fmt.Fprintf(&b, "Authors: %s\n", strings.Join(article.Authors, ", "))
		fmt.Fprintf(&b, "Journal: %s\n", article.Journal)
		fmt.Fprintf(&b, "Published: %s\n", article.PubDate)
		if article.DOI != "" {
			fmt.Fprintf(&b, "DOI: %s\n", article.DOI)
		}
		if len(article.Keywords) > 0 {
			fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(article.Keywords, ", "))
		}
		if article.Abstract != "" {
			fmt.Fprintf(&b, "\nAbstract:\n%s\n", article.Abstract)
		}
		return mcp.TextResult(b.String()), nil
	}
}

func joinAuthors(authors []string) string {
	if len(authors) == 0 {
		return "unknown"
	}
	if len(authors) > 3 {
		return strings.Join(authors[:3], ", ") + " et al."
	}
	return strings.Join(authors, ", ")
}
