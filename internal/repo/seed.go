package repo

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"donor-bot/internal/pin"
)

// CSV header names accepted by the seed loader, after normalization.
const (
	seedHeaderPin    = "pin-code"
	seedHeaderName   = "full name"
	seedHeaderAmount = "amount"
	seedHeaderLink   = "donation link"
)

// LoadSeedCSV parses a donor roster CSV. The first row must be a header
// naming at least the pin-code and full name columns. Rows missing a pin
// or a name are skipped.
func LoadSeedCSV(r io.Reader) ([]DonorSeed, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read seed header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	pinIdx, ok := cols[seedHeaderPin]
	if !ok {
		return nil, fmt.Errorf("seed header missing %q column", seedHeaderPin)
	}
	nameIdx, ok := cols[seedHeaderName]
	if !ok {
		return nil, fmt.Errorf("seed header missing %q column", seedHeaderName)
	}
	amountIdx, hasAmount := cols[seedHeaderAmount]
	linkIdx, hasLink := cols[seedHeaderLink]

	field := func(record []string, idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var donors []DonorSeed
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read seed row: %w", err)
		}

		seed := DonorSeed{
			PinCode:  pin.Normalize(field(record, pinIdx)),
			FullName: field(record, nameIdx),
		}
		if seed.PinCode == "" || seed.FullName == "" {
			continue
		}
		if hasAmount {
			seed.DonationAmount = field(record, amountIdx)
		}
		if seed.DonationAmount == "" {
			seed.DonationAmount = "0"
		}
		if hasLink {
			seed.DonationLink = field(record, linkIdx)
		}
		donors = append(donors, seed)
	}
	return donors, nil
}

// SeedIfEmpty loads the roster CSV at path into the store, unless donors
// already exist or the file is absent. Returns the number of donors inserted.
func SeedIfEmpty(ctx context.Context, store Store, path string, logger *slog.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}

	count, err := store.CountDonors(ctx)
	if err != nil {
		return 0, fmt.Errorf("check existing donors: %w", err)
	}
	if count > 0 {
		logger.Info("seed skipped, donors already present", "count", count)
		return 0, nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("seed file not found", "path", path)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	donors, err := LoadSeedCSV(f)
	if err != nil {
		return 0, fmt.Errorf("load seed csv: %w", err)
	}
	if len(donors) == 0 {
		logger.Warn("seed file has no usable rows", "path", path)
		return 0, nil
	}

	if err := store.SeedDonors(ctx, donors); err != nil {
		return 0, err
	}
	logger.Info("seeded donors", "count", len(donors), "path", path)
	return len(donors), nil
}
