package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/trialscout-server/internal/domain"
)

//go:embed data/trials.json
var seedCatalog []byte

// SeedTrials returns the trials shipped with the binary.
func SeedTrials() ([]domain.Trial, error) {
	var export Export
	if err := json.Unmarshal(seedCatalog, &export); err != nil {
		return nil, fmt.Errorf("decoding seed catalog: %w", err)
	}
	return export.Trials, nil
}

// Seed imports the bundled trials into an empty catalog. A catalog that
// already has rows is left alone.
func Seed(ctx context.Context, store Store, logger *logrus.Logger) error {
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		logger.WithField("trials", count).Debug("Catalog already populated, skipping seed")
		return nil
	}

	imported, skipped, err := store.ImportJSON(ctx, bytes.NewReader(seedCatalog))
	if err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"imported": imported,
		"skipped":  skipped,
	}).Info("Seeded trial catalog")
	return nil
}
