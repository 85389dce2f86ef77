package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/aeroclub/membership-backend/internal/config"
	"github.com/aeroclub/membership-backend/internal/database"
	"github.com/aeroclub/membership-backend/internal/models"
	"github.com/aeroclub/membership-backend/internal/services"
)

// Clears the member collection. The destructive mode physically deletes
// every record and goes through the same access gate as the API; the tool
// runs at technical-admin level because it is operator tooling, but it will
// still refuse without the -confirm flag.
func main() {
	var dbURLFlag string
	var destructive bool
	var confirm bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&destructive, "destructive", false, "physically delete records instead of marking them inactive")
	flag.BoolVar(&confirm, "confirm", false, "required to actually clear anything")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	if !confirm {
		log.Fatal("refusing to clear without -confirm")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	repo := database.NewMemberRepository(db)
	gate := services.NewAccessGate(services.DefaultGatePolicy())
	rolePolicy := models.DefaultRolePolicy()
	importService := services.NewImportService(
		repo, nil, nil, gate, services.NoopImportLock{}, rolePolicy,
		config.ImportConfig{ChunkSize: services.DefaultChunkSize},
		logger,
	)

	result := importService.ClearAll(models.LevelAdmin, destructive, "maintenance-cli")
	if !result.Success {
		log.Fatalf("clear failed: %s", result.Message)
	}

	fmt.Println(result.Message)

	count, err := repo.CountMembers()
	if err != nil {
		log.Fatalf("failed to count members: %v", err)
	}
	fmt.Printf("members remaining: %d\n", count)
}
