package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fadedpez/ledger/pkg/db"
	"github.com/fadedpez/ledger/pkg/db/migrations"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		migrator, conn := parseTarget("migrate", os.Args[2:])
		defer conn.Close()

		if err := migrator.MigrateUp(); err != nil {
			log.Fatalf("Error applying migrations: %v", err)
		}
		fmt.Println("Migrations applied successfully!")

	case "status":
		migrator, conn := parseTarget("status", os.Args[2:])
		defer conn.Close()

		printStatus(migrator)

	case "help":
		printUsage()

	default:
		fmt.Printf("Error: Unknown command '%s'\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run cmd/migration/main.go migrate [-db PATH | -dsn DSN] [-dir DIR]  - Apply pending migrations")
	fmt.Println("  go run cmd/migration/main.go status  [-db PATH | -dsn DSN] [-dir DIR]  - List pending migrations")
	fmt.Println("  go run cmd/migration/main.go help                                      - Show this help")
	fmt.Println("\nExamples:")
	fmt.Println("  go run cmd/migration/main.go migrate -db data/ledger.db")
	fmt.Println("  go run cmd/migration/main.go status -dsn postgres://ledger@localhost/ledger?sslmode=disable")
}

// parseTarget opens the database named by the flags and builds its migrator
func parseTarget(name string, args []string) (*migrations.Migrator, *sql.DB) {
	flags := flag.NewFlagSet(name, flag.ExitOnError)
	dbPath := flags.String("db", "data/ledger.db", "Path to SQLite database")
	dsn := flags.String("dsn", "", "PostgreSQL connection string, overrides -db")
	dir := flags.String("dir", "", "Directory containing migrations, defaults to the embedded set")
	flags.Parse(args)

	var fsys fs.FS = migrations.Embedded()
	if *dir != "" {
		fsys = os.DirFS(*dir)
	}

	dialect := db.SQLite
	source := *dbPath
	if *dsn != "" {
		dialect = db.Postgres
		source = *dsn
	} else if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Error creating database directory: %v", err)
	}

	conn, err := sql.Open(dialect.DriverName(), source)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		log.Fatalf("Error connecting to %s database: %v", dialect, err)
	}

	return migrations.NewMigrator(conn, fsys, dialect), conn
}

func printStatus(migrator *migrations.Migrator) {
	all, err := migrator.LoadMigrations()
	if err != nil {
		log.Fatalf("Error loading migrations: %v", err)
	}

	pending, err := migrator.Pending()
	if err != nil {
		log.Fatalf("Error reading migration status: %v", err)
	}

	waiting := make(map[string]bool, len(pending))
	for _, migration := range pending {
		waiting[migration.Version] = true
	}

	for _, migration := range all {
		state := "applied"
		if waiting[migration.Version] {
			state = "pending"
		}
		fmt.Printf("  %s  %-8s %s\n", migration.Version, state, migration.Description)
	}
	fmt.Printf("\n%d of %d migrations pending\n", len(pending), len(all))
}
