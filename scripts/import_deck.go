package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/propdeal/propdeal-server-go/internal/config"
	"github.com/propdeal/propdeal-server-go/internal/game/cards"
	"github.com/propdeal/propdeal-server-go/internal/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	deckName := flag.String("deck", "standard", "name to store the deck under")
	export := flag.String("export", "", "write the built-in deck to this CSV file and exit")
	flag.Parse()

	if *export != "" {
		f, err := os.Create(*export)
		if err != nil {
			log.Fatalf("Failed to create %s: %v", *export, err)
		}
		if err := cards.WriteCatalog(f, cards.StandardDeck()); err != nil {
			log.Fatalf("Failed to write catalog: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("Failed to close %s: %v", *export, err)
		}
		fmt.Printf("✓ Wrote built-in deck to %s\n", *export)
		return
	}

	csvPath := "data/deck.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}
	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== Property Deal Deck Import ===")
	fmt.Printf("CSV file: %s\n", absPath)

	file, err := os.Open(absPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v\nRun with -export to start from the built-in deck", err)
	}
	defer file.Close()

	deck, err := cards.ParseCatalog(file)
	if err != nil {
		log.Fatalf("Failed to parse catalog: %v", err)
	}
	fmt.Printf("Found %d cards in CSV\n", len(deck))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !cfg.Database.Enabled() {
		log.Fatal("database.url is not configured (set DEAL_DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Printf("Connecting to database...\n")
	db, err := repository.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("✓ Database connection established")

	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	start := time.Now()
	if err := repository.NewDeckRepository(db).ReplaceDeck(ctx, *deckName, deck); err != nil {
		log.Fatalf("Failed to import deck: %v", err)
	}
	fmt.Printf("✓ Imported %d cards as deck %q in %v\n", len(deck), *deckName, time.Since(start).Round(time.Millisecond))
}
