package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/dashboard"
	"github.com/fentz26/commandcenter/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve Command Center tools over MCP (stdio)",
	Long: `Runs a Model Context Protocol server on stdin/stdout so AI clients can run
audits, ask the AI backend, generate briefings, trigger workflows and check
service status. Configure it in your client as:

  {"command": "commandcenter", "args": ["mcp"]}

Logs go to the configured log file, or stderr.`,
	RunE: runMCP,
}

var mcpToolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the MCP server exposes",
	RunE:  runMCPTools,
}

func init() {
	mcpCmd.AddCommand(mcpToolsCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	comps, err := buildComponents(cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcp.New(dashboard.NewService(comps.deps))
	logger.Info("mcp server starting", "transport", "stdio")
	if err := srv.Run(ctx, &sdk.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// runMCPTools lists tools by connecting an in-memory client to an
// unconfigured server.
func runMCPTools(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	srv := mcp.New(dashboard.NewService(dashboard.Deps{}))

	clientTransport, serverTransport := sdk.NewInMemoryTransports()
	if _, err := srv.Connect(ctx, serverTransport, nil); err != nil {
		return err
	}
	client := sdk.NewClient(&sdk.Implementation{Name: "commandcenter-cli"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return err
	}
	for _, t := range res.Tools {
		fmt.Printf("%-18s %s\n", t.Name, t.Description)
	}
	return nil
}
