package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
	"github.com/mauv0809/derby-tracker/internal/config"
	"github.com/mauv0809/derby-tracker/internal/database"
	"github.com/mauv0809/derby-tracker/internal/league"
	"github.com/spf13/cobra"
)

var seedFile string

var rootCmd = &cobra.Command{
	Use:   "derby-seeder",
	Short: "Load a league file into the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info("Starting database seeder...")
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, teardown, err := database.InitDB(cfg.Store.URL, cfg.Store.APIKey, cfg.MigrationsDir)
		if err != nil {
			return err
		}
		defer teardown()
		log.Info("Successfully connected to the store.", "dialect", db.Dialect)

		f, err := os.Open(seedFile)
		if err != nil {
			return err
		}
		defer f.Close()

		file, err := parse(f)
		if err != nil {
			return err
		}

		startTime := time.Now()
		res, err := seed(cmd.Context(), league.New(db, clockwork.NewRealClock()), file)
		if err != nil {
			return err
		}
		log.Info("Successfully seeded the league.", "teams", res.Teams, "players", res.Players, "bouts", res.Bouts, "duration", time.Since(startTime))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&seedFile, "file", "f", "cmd/seeder/league.example.yaml", "Path to the league YAML file")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %s", err)
	}
}
