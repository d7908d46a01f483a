package cmd

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/agentic-research/mmdb/internal/database"
	"github.com/agentic-research/mmdb/internal/render"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve lookups over the Model Context Protocol on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openDatabase()
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()

		s := server.NewMCPServer("mmdb", version, server.WithToolCapabilities(false))
		s.AddTool(lookupTool(), lookupHandler(r))
		s.AddTool(metadataTool(), metadataHandler(r))
		return server.ServeStdio(s)
	},
}

func lookupTool() mcp.Tool {
	return mcp.NewTool("lookup",
		mcp.WithDescription("Look up an IP address and return its record as JSON, or null when the address routes nowhere"),
		mcp.WithString("ip", mcp.Required(), mcp.Description("IPv4 or IPv6 address")),
		mcp.WithString("path", mcp.Description("Optional JSONPath applied to the record, e.g. $.country.iso_code")),
	)
}

func lookupHandler(r *database.Reader) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ip, err := req.RequireString("ip")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("'%s' is not a valid IP address", ip)), nil
		}

		v, ok, err := r.Lookup(addr)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !ok {
			return mcp.NewToolResultText("null"), nil
		}

		out, err := render.JSON(v, render.Options{Path: req.GetString("path", "")})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

func metadataTool() mcp.Tool {
	return mcp.NewTool("metadata",
		mcp.WithDescription("Return the database metadata as JSON"),
	)
}

func metadataHandler(r *database.Reader) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(render.Any(render.Metadata(r.Metadata()), false)), nil
	}
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
