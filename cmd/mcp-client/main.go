package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mcp-client <server-command> [<args>]")
		fmt.Fprintln(os.Stderr, "Example: mcp-client ./hpoextend serve hp.obo")
		os.Exit(2)
	}

	ctx := context.Background()

	// Start the server as a subprocess
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "hpoextend-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer session.Close()

	fmt.Println("Connected to hpoextend MCP Server!")
	fmt.Println("Available commands:")
	fmt.Println("  /tools             - List available tools")
	fmt.Println("  /ancestors <id>    - All ancestors of a term")
	fmt.Println("  /children <id>     - Direct children of a term")
	fmt.Println("  /categories <id>   - Top-level categories of a term")
	fmt.Println("  /extend <line>     - Extend an annotation line (write tabs as \\t)")
	fmt.Println("  /counts [run_id]   - Rows per category for a stored run")
	fmt.Println("  /runs [limit]      - Recent stored runs")
	fmt.Println("  /graph <cypher>    - Execute Cypher query")
	fmt.Println("  /exit              - Exit the client")
	fmt.Println("  <id>               - Look up a term")
	fmt.Println()

	// Interactive REPL
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		cmdName, rest, _ := strings.Cut(input, " ")
		rest = strings.TrimSpace(rest)

		switch cmdName {
		case "/exit":
			fmt.Println("Goodbye!")
			return

		case "/tools":
			listTools(ctx, session)

		case "/ancestors":
			callTool(ctx, session, "get_ancestors", map[string]any{"id": rest})

		case "/children":
			callTool(ctx, session, "get_children", map[string]any{"id": rest})

		case "/categories":
			callTool(ctx, session, "get_categories", map[string]any{"id": rest})

		case "/extend":
			callTool(ctx, session, "extend_record", map[string]any{
				"line": strings.ReplaceAll(rest, `\t`, "\t"),
			})

		case "/counts":
			args := map[string]any{}
			if rest != "" {
				args["run_id"] = rest
			}
			callTool(ctx, session, "get_category_counts", args)

		case "/runs":
			args := map[string]any{}
			if n, err := strconv.Atoi(rest); err == nil {
				args["limit"] = n
			}
			callTool(ctx, session, "get_recent_runs", args)

		case "/graph":
			callTool(ctx, session, "query_graph", map[string]any{"cypher": rest})

		default:
			callTool(ctx, session, "lookup_term", map[string]any{"id": input})
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Scanner error: %v", err)
	}
}

func listTools(ctx context.Context, session *mcp.ClientSession) {
	fmt.Println("Available Tools:")
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			log.Printf("Error listing tools: %v", err)
			return
		}
		fmt.Printf("  - %s: %s\n", tool.Name, tool.Description)
	}
	fmt.Println()
}

func callTool(ctx context.Context, session *mcp.ClientSession, toolName string, args map[string]any) {
	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		log.Printf("Error calling tool: %v", err)
		return
	}

	printResult(result)
}

func printResult(result *mcp.CallToolResult) {
	if result.IsError {
		fmt.Printf("Error: ")
	} else {
		fmt.Printf("Result: ")
	}

	// Structured output is easier to read than the text echo of it.
	if result.StructuredContent != nil && !result.IsError {
		if jsonData, err := json.MarshalIndent(result.StructuredContent, "", "  "); err == nil {
			fmt.Println(string(jsonData))
			fmt.Println()
			return
		}
	}

	for _, content := range result.Content {
		switch v := content.(type) {
		case *mcp.TextContent:
			fmt.Println(v.Text)
		default:
			// Try JSON marshaling for other types
			jsonData, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				fmt.Printf("%+v\n", content)
			} else {
				fmt.Println(string(jsonData))
			}
		}
	}
	fmt.Println()
}
