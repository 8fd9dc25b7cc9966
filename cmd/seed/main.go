package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/noah-isme/codepractice-api/internal/config"
	"github.com/noah-isme/codepractice-api/internal/database"
	"github.com/noah-isme/codepractice-api/internal/dto"
	"github.com/noah-isme/codepractice-api/internal/repository"
	"github.com/noah-isme/codepractice-api/internal/service"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	flags := pflag.NewFlagSet("seed", pflag.ExitOnError)
	file := flags.StringP("file", "f", "data/questions.json", "JSON file with the question catalog")
	destroy := flags.BoolP("destroy", "d", false, "delete every question without submissions instead of importing")
	replace := flags.Bool("replace", true, "remove questions missing from the file")
	flags.String("database-url", "", "database url (defaults to PRACTICE_DATABASE_URL)")
	_ = flags.Parse(os.Args[1:])

	if err := run(logger, flags, *file, *destroy, *replace); err != nil {
		logger.Fatal().Err(err).Msg("seed failed")
	}
}

func run(logger zerolog.Logger, flags *pflag.FlagSet, file string, destroy, replace bool) error {
	dsn, err := config.DatabaseURL(flags)
	if err != nil {
		return err
	}

	db, err := database.ConnectPostgres(dsn)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	seeder := service.NewSeedService(repository.NewProblemRepository(db), true, "", validator.New(validator.WithRequiredStructEnabled()), logger)

	if destroy {
		removed, err := seeder.Destroy(ctx)
		if err != nil {
			return err
		}
		logger.Info().Int64("removed", removed).Msg("questions destroyed")
		return nil
	}

	items, err := readQuestions(file)
	if err != nil {
		return err
	}

	affected, err := seeder.Import(ctx, items, replace)
	if err != nil {
		return err
	}
	logger.Info().Int64("affected", affected).Str("file", file).Bool("replace", replace).Msg("questions imported")
	return nil
}

func readQuestions(path string) ([]dto.ProblemCreateRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var items []dto.ProblemCreateRequest
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s contains no questions", path)
	}
	return items, nil
}
