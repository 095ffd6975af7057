// cmd/pgvault/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pgvault/pgvault/internal/app"
	"github.com/pgvault/pgvault/internal/config"
	"github.com/pgvault/pgvault/internal/domain"
)

const usage = `Usage: pgvault <command> [flags]

Commands:
  backup      create a database backup (-s schema, -t schema.table, repeatable)
  restore     restore from an artifact (-file path, -s schema, -t schema.table)
  verify      check an artifact's integrity (-file path)
  list        list stored artifacts
  export-csv  export tables as CSV (-t schema.table, -o dir)
  import-csv  import CSV files (-f file | -i dir, -truncate)
  schedule    run periodic backups on the configured cron expression
`

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint(*s) }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}
	command, args := os.Args[1], os.Args[2:]

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch command {
	case "backup":
		fs := flag.NewFlagSet("backup", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		var schemas, tables stringList
		fs.Var(&schemas, "s", "schema to include (repeatable; default: all)")
		fs.Var(&tables, "t", "table to include as schema.table (repeatable)")
		fs.Parse(args)

		application, err := newApp(*configPath)
		if err != nil {
			return err
		}
		defer application.Shutdown()
		return reportResult(application.Backup(ctx, schemas, tables))

	case "restore":
		fs := flag.NewFlagSet("restore", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		file := fs.String("file", "", "artifact to restore from")
		var schemas, tables stringList
		fs.Var(&schemas, "s", "schema to include (repeatable; default: all)")
		fs.Var(&tables, "t", "table to include as schema.table (repeatable)")
		fs.Parse(args)
		if *file == "" {
			return fmt.Errorf("restore requires -file")
		}

		application, err := newApp(*configPath)
		if err != nil {
			return err
		}
		defer application.Shutdown()
		return reportResult(application.Restore(ctx, *file, schemas, tables))

	case "verify":
		fs := flag.NewFlagSet("verify", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		file := fs.String("file", "", "artifact to verify")
		fs.Parse(args)
		if *file == "" {
			return fmt.Errorf("verify requires -file")
		}

		application, err := newApp(*configPath)
		if err != nil {
			return err
		}
		defer application.Shutdown()
		if err := application.Verify(*file); err != nil {
			return err
		}
		fmt.Printf("%s: ok\n", *file)
		return nil

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		fs.Parse(args)

		application, err := newApp(*configPath)
		if err != nil {
			return err
		}
		defer application.Shutdown()
		artifacts, err := application.ListArtifacts()
		if err != nil {
			return err
		}
		for _, artifact := range artifacts {
			fmt.Printf("%s\t%d bytes\t%s\n",
				artifact.Path, artifact.Size, artifact.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil

	case "export-csv":
		fs := flag.NewFlagSet("export-csv", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		outDir := fs.String("o", "", "output directory (default: backup dir)")
		var tables stringList
		fs.Var(&tables, "t", "table to export as schema.table (repeatable; default: all)")
		fs.Parse(args)

		application, err := newApp(*configPath)
		if err != nil {
			return err
		}
		defer application.Shutdown()
		return application.ExportCSV(ctx, tables, *outDir)

	case "import-csv":
		fs := flag.NewFlagSet("import-csv", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		inputDir := fs.String("i", "", "directory of csv files to import")
		truncate := fs.Bool("truncate", false, "truncate tables before importing")
		var files stringList
		fs.Var(&files, "f", "csv file to import (repeatable)")
		fs.Parse(args)

		application, err := newApp(*configPath)
		if err != nil {
			return err
		}
		defer application.Shutdown()
		return application.ImportCSV(ctx, files, *inputDir, *truncate)

	case "schedule":
		fs := flag.NewFlagSet("schedule", flag.ExitOnError)
		configPath := fs.String("config", "", "path to config file")
		fs.Parse(args)

		application, err := newApp(*configPath)
		if err != nil {
			return err
		}
		defer application.Shutdown()
		return application.RunScheduled(ctx)

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func newApp(configPath string) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	return application, nil
}

// reportResult maps an OperationResult onto the process exit code: any
// failed operation makes run() return an error and the process exit 1.
func reportResult(result *domain.OperationResult) error {
	for _, diag := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, diag)
	}
	if !result.Success {
		return result.Err
	}
	return nil
}
