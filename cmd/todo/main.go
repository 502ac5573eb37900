package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "migrate":
		err = cmdMigrate(os.Args[2:])
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "config":
		err = cmdConfig(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("todo %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Todo - multi-user todo backend

Usage:
  todo <command> [arguments]

Commands:
  migrate         Apply database migrations and print the schema version
  mcp             Start MCP server on stdio, acting as $TODO_USERNAME
  config          Show the effective configuration (secrets redacted)
  help            Show this help message
  version         Show version information

Flags (migrate, mcp, config):
  -config FILE    YAML config file (default: $TODO_CONFIG)

The HTTP API is served by todod.

Examples:
  todo migrate                                  # Migrate the configured database
  DATABASE_DRIVER=postgres todo migrate         # Migrate PostgreSQL at $DATABASE_URL
  TODO_USERNAME=alice TODO_PASSWORD=... todo mcp`)
}
