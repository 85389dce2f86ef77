package main

import (
	"encoding/json"
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

// Imports a roster export from a local JSON file, running the same pipeline
// as the API endpoint. Intended for the initial data load and for re-running
// an import after a partial failure.
func main() {
	var filePath string
	var reconcile bool
	flag.StringVar(&filePath, "file", "", "path to the roster export JSON file")
	flag.BoolVar(&reconcile, "reconcile", false, "merge incoming records with existing identity-linked members")
	flag.Parse()

	if filePath == "" {
		log.Fatal("-file is required")
	}

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatalf("failed to read roster file: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Fatalf("failed to parse roster file: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)

	rolePolicy := models.DefaultRolePolicy()
	keys := services.NewKeyAssigner(cfg.Import.KeyPrefix)
	normalizer := services.NewNormalizer(rolePolicy, keys, cfg.Import.Source)
	roster := services.NewRosterService(normalizer, logger)
	reconciler := services.NewReconciler()
	gate := services.NewAccessGate(services.DefaultGatePolicy())
	repo := database.NewMemberRepository(db)

	importService := services.NewImportService(
		repo, roster, reconciler, gate, services.NoopImportLock{},
		rolePolicy, cfg.Import, logger,
	)

	result := importService.Import(models.LevelAdmin, payload, services.ImportOptions{
		Reconcile: reconcile,
		Actor:     "import-roster-cli",
		OnProgress: func(e models.ProgressEvent) {
			fmt.Printf("[%s] %d/%d %s\n", e.Stage, e.Processed, e.Total, e.Message)
		},
	})
	if !result.Success {
		log.Fatalf("import failed (%s): %s", result.Error, result.Message)
	}

	fmt.Printf("imported %d members (run %s)\n", result.MembersProcessed, result.RunID)
}
