// cmd/progscout/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/progscout/progscout/internal/config"
	"github.com/progscout/progscout/internal/export"
	"github.com/progscout/progscout/internal/monitoring"
	"github.com/progscout/progscout/internal/server"
	"github.com/progscout/progscout/internal/store"
	"github.com/progscout/progscout/internal/utils"
	"github.com/progscout/progscout/pkg/api"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "save":
		requireArg("save <url>")
		runWithClient(func(ctx context.Context, client *api.Client) error {
			return saveProgram(ctx, client, os.Args[2])
		})

	case "extract":
		requireArg("extract <url>")
		runWithClient(func(ctx context.Context, client *api.Client) error {
			return extractProgram(ctx, client, os.Args[2])
		})

	case "list":
		runWithClient(listPrograms)

	case "remove":
		requireArg("remove <id>")
		runWithClient(func(ctx context.Context, client *api.Client) error {
			return removeProgram(ctx, client, os.Args[2])
		})

	case "tier":
		runWithClient(manageTier)

	case "export":
		requireArg("export <file>")
		runWithClient(func(ctx context.Context, client *api.Client) error {
			return exportPrograms(ctx, client, os.Args[2])
		})

	case "serve":
		runServer()

	case "template":
		printTemplate()

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// requireArg exits with usage when the command's positional argument
// is missing.
func requireArg(usage string) {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Error: argument required\n")
		fmt.Fprintf(os.Stderr, "Usage: progscout %s\n", usage)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	path := flagValue("--config")
	if path == "" {
		path = os.Getenv("PROGSCOUT_CONFIG")
	}
	if path == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runWithClient(fn func(context.Context, *api.Client) error) {
	cfg := loadConfig()
	ctx := context.Background()

	client, err := api.NewClient(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := fn(ctx, client); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func saveProgram(ctx context.Context, client *api.Client, url string) error {
	record, err := client.Capture(ctx, url)
	if err != nil {
		return err
	}
	stored, err := client.Save(ctx, *record)
	if err != nil {
		return err
	}
	fmt.Printf("Saved: %s — %s (id %s)\n", stored.Title, stored.Institution, stored.ID)
	return nil
}

func extractProgram(ctx context.Context, client *api.Client, url string) error {
	record, err := client.Capture(ctx, url)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(record)
}

func listPrograms(ctx context.Context, client *api.Client) error {
	records, err := client.List(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No programs saved.")
		return nil
	}
	for i, record := range records {
		fmt.Printf("%d. %s — %s\n", i+1, record.Title, record.Institution)
		fmt.Printf("   id: %s\n", record.ID)
		fmt.Printf("   tuition: %s  deadline: %s  duration: %s\n",
			record.Tuition, record.Deadline, record.Duration)
		if record.SourceURL != "" {
			fmt.Printf("   url: %s\n", record.SourceURL)
		}
	}
	return nil
}

func removeProgram(ctx context.Context, client *api.Client, id string) error {
	if err := client.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", id)
	return nil
}

func manageTier(ctx context.Context, client *api.Client) error {
	switch {
	case hasFlag("--premium"):
		tier, err := client.Tier(ctx)
		if err != nil {
			return err
		}
		tier.IsPremium = true
		if err := client.SetTier(ctx, tier); err != nil {
			return err
		}
		fmt.Println("Upgraded to premium: unlimited saves.")
	case hasFlag("--free"):
		tier, err := client.Tier(ctx)
		if err != nil {
			return err
		}
		tier.IsPremium = false
		if err := client.SetTier(ctx, tier); err != nil {
			return err
		}
		fmt.Printf("Downgraded to free tier (limit %d).\n", tier.MaxFreeRecords)
	default:
		tier, err := client.Tier(ctx)
		if err != nil {
			return err
		}
		records, err := client.List(ctx)
		if err != nil {
			return err
		}
		if tier.IsPremium {
			fmt.Printf("Tier: premium (%d saved)\n", len(records))
		} else {
			fmt.Printf("Tier: free (%d of %d saved)\n", len(records), tier.MaxFreeRecords)
		}
	}
	return nil
}

func exportPrograms(ctx context.Context, client *api.Client, path string) error {
	format := export.FormatForPath(path)
	if name := flagValue("--format"); name != "" {
		parsed, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		format = parsed
	}
	if err := client.Export(ctx, path, format); err != nil {
		return err
	}
	fmt.Printf("Exported comparison to %s\n", path)
	return nil
}

func runServer() {
	cfg := loadConfig()
	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := api.NewClient(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	// Seed the tier for a fresh store.
	if cfg.Tier.Premium || cfg.Tier.MaxFreeRecords != store.DefaultMaxFreeRecords {
		tier := store.TierState{IsPremium: cfg.Tier.Premium, MaxFreeRecords: cfg.Tier.MaxFreeRecords}
		if err := client.SetTier(ctx, tier); err != nil {
			logger.Warnf("failed to seed tier: %v", err)
		}
	}

	srv := server.New(client, monitoring.NewMetrics(), logger, cfg.Server)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printTemplate() {
	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(data))
}

// hasFlag checks if a flag is present in command line arguments
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

// flagValue returns the value following a flag, or "".
func flagValue(flag string) string {
	for i, arg := range os.Args {
		if arg == flag && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
	}
	return ""
}

func printUsage() {
	fmt.Println("ProgScout - Academic Program Extraction and Comparison")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  progscout save <url>                  Extract a program page and save it")
	fmt.Println("  progscout extract <url>               Extract a program page and print it")
	fmt.Println("  progscout list                        List saved programs")
	fmt.Println("  progscout remove <id>                 Remove a saved program")
	fmt.Println("  progscout tier [--premium|--free]     Show or change the account tier")
	fmt.Println("  progscout export <file> [--format f]  Export the comparison matrix (csv, json, xlsx)")
	fmt.Println("  progscout serve                       Run the HTTP API server")
	fmt.Println("  progscout template                    Print a configuration template")
	fmt.Println("  progscout version                     Show version information")
	fmt.Println("  progscout help                        Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <file>                       Configuration file (or PROGSCOUT_CONFIG)")
}

func printVersion() {
	fmt.Printf("ProgScout %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
