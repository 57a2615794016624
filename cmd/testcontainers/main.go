package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pis-platform/pis/internal/database"
	"github.com/pis-platform/pis/internal/testutil"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var dbType string
	flag.StringVar(&dbType, "db", "postgres", "database type: postgres or mysql")
	flag.Parse()

	usage := `
Run a database testcontainer for the PIS server with the environment variables from the .env file.
The container is migrated and its connection settings are printed for use as DB_* variables.

Usage:

testcontainers [-h] [-db postgres|mysql] [-f ENV_FILE_PATH]

ENV_FILE_PATH: path to the .env file

example
  testcontainers -db mysql -f /path/to/something/.env
`
	// if -h flag print usage and return
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}

	ctx := context.Background()
	container, err := testutil.StartDatabase(ctx, nil, dbType)
	if err != nil {
		log.Fatalf("Failed to start database container: %v\n", err)
	}

	db, err := database.Connect(container.Config)
	if err != nil {
		container.Terminate(nil)
		log.Fatalf("Failed to connect to database container: %v\n", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		container.Terminate(nil)
		log.Fatalf("Failed to migrate database container: %v\n", err)
	}
	_ = database.Close(db)
	log.Printf("Database container ready, press Ctrl+C to terminate\n")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigs
	log.Printf("\nReceived signal: %v, terminating test containers...\n", sig)
	container.Terminate(nil)
}
