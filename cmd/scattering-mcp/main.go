package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ironsheep/scattering-tools/internal/config"
	"github.com/ironsheep/scattering-tools/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("scattering-mcp - MCP server for X-ray scattering detector analysis")
	fmt.Println()
	fmt.Println("Usage: scattering-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config PATH    Load default geometry and analysis parameters from a YAML file")
	fmt.Println("  --print-config   Print the effective config as YAML and exit")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  SCATTERING_MCP_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	configPath := ""
	printConfig := false

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--version" || arg == "-v" || arg == "version":
			fmt.Printf("scattering-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case arg == "--help" || arg == "-h" || arg == "help":
			usage()
			return
		case arg == "--print-config":
			printConfig = true
		case arg == "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			fmt.Fprintf(os.Stderr, "unknown option %q\n\n", arg)
			usage()
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	debug := os.Getenv("SCATTERING_MCP_LOG_LEVEL") == "debug"
	if debug {
		log.Printf("Scattering MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatalf("Config error: %v", err)
		}
		if debug {
			log.Printf("Loaded config from %s", configPath)
		}
	}

	if printConfig {
		out, err := cfg.AsYAML()
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		fmt.Print(out)
		return
	}

	srv := server.New(server.WithConfig(cfg), server.WithDebug(debug), server.WithVersion(Version))
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
