// Command import-patients turns confirmed signups from the intake Google
// Sheet into sharded patients.json queue files. Each signup's max travel
// distance is resolved against the geocoded pharmacy list into an ordered
// list of target postal codes, nearest first.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"github.com/slotseeker/slotseeker/internal/geo"
	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/internal/queue"
	"github.com/slotseeker/slotseeker/internal/sheets"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

func main() {
	var (
		pharmaciesPath  = flag.String("pharmacies", "input/pharmacies.csv", "pharmacy list CSV (Address, Zipcode columns)")
		outputDir       = flag.String("output", "input", "directory for the sharded patients.json files")
		shards          = flag.Int("shards", 2, "number of queue shards to split patients across")
		credentialsPath = flag.String("credentials", "credentials.json", "Google OAuth client secret file")
		tokenPath       = flag.String("token", "token.json", "cached Google OAuth token")
		cachePath       = flag.String("geocache", "output/mapbox.json", "persistent geocoding cache")
	)
	flag.Parse()
	_ = godotenv.Load()

	logger := logging.New(os.Getenv("LOG_LEVEL"))
	ctx := context.Background()

	spreadsheetID := os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	if spreadsheetID == "" {
		logger.Error("GOOGLE_SHEETS_SPREADSHEET_ID is required")
		os.Exit(1)
	}
	readRange := os.Getenv("GOOGLE_SHEETS_RANGE")
	if readRange == "" {
		readRange = "Signups!A:S"
	}
	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	if mapboxToken == "" {
		logger.Error("MAPBOX_TOKEN is required")
		os.Exit(1)
	}

	if err := ensureToken(ctx, *credentialsPath, *tokenPath); err != nil {
		logger.Error("google auth failed", "error", err)
		os.Exit(1)
	}

	reader, err := sheets.NewReader(ctx, *credentialsPath, *tokenPath, spreadsheetID, readRange, logger)
	if err != nil {
		logger.Error("sheet reader setup failed", "error", err)
		os.Exit(1)
	}
	signups, err := reader.Signups(ctx)
	if err != nil {
		logger.Error("fetching signups failed", "error", err)
		os.Exit(1)
	}
	logger.Info("signups fetched", "confirmed", len(signups))

	pharmacies, err := loadPharmacies(*pharmaciesPath)
	if err != nil {
		logger.Error("loading pharmacies failed", "error", err, "path", *pharmaciesPath)
		os.Exit(1)
	}

	geocoder := geo.NewGeocoder(mapboxToken, *cachePath, geo.WithLogger(logger))
	candidates, err := geocodePharmacies(ctx, geocoder, pharmacies)
	if err != nil {
		logger.Error("geocoding pharmacies failed", "error", err)
		os.Exit(1)
	}

	var patients []patient.Patient
	for _, s := range signups {
		p := s.Patient
		home, err := geocoder.Locate(ctx, fmt.Sprintf("%s, %s, %s, %s", p.Address, p.City, p.State, p.Zip))
		if err != nil {
			logger.Warn("skipping patient, home address did not geocode",
				"patient", p.FullName(), "error", err)
			continue
		}

		zips := geo.RankTargets(home, eligible(candidates, p.State), float64(s.MaxMiles))
		if len(zips) == 0 {
			logger.Warn("skipping patient, no pharmacy within range",
				"patient", p.FullName(), "max_miles", s.MaxMiles)
			continue
		}
		p.TargetZips = zips
		patients = append(patients, p)
		logger.Info("patient imported", "patient", p.FullName(), "targets", len(zips))
	}

	if err := writeShards(*outputDir, *shards, patients, logger); err != nil {
		logger.Error("writing queue shards failed", "error", err)
		os.Exit(1)
	}
}

// ensureToken runs the installed-app OAuth flow once, caching the token.
func ensureToken(ctx context.Context, credentialsPath, tokenPath string) error {
	if _, err := sheets.LoadToken(tokenPath); err == nil {
		return nil
	}
	cfg, err := sheets.OAuthConfig(credentialsPath)
	if err != nil {
		return err
	}
	cfg.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"

	url := cfg.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Printf("Open this link in your browser, then paste the code:\n%s\n> ", url)
	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return err
	}
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return err
	}
	return sheets.SaveToken(tokenPath, token)
}

type pharmacy struct {
	Address string
	Zip     string
}

func loadPharmacies(path string) ([]pharmacy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("pharmacy list %s has no data rows", path)
	}

	addrCol, zipCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "address":
			addrCol = i
		case "zipcode", "zip":
			zipCol = i
		}
	}
	if addrCol < 0 || zipCol < 0 {
		return nil, fmt.Errorf("pharmacy list %s is missing Address/Zipcode columns", path)
	}

	var out []pharmacy
	for _, row := range rows[1:] {
		if len(row) <= addrCol || len(row) <= zipCol {
			continue
		}
		out = append(out, pharmacy{Address: row[addrCol], Zip: row[zipCol]})
	}
	return out, nil
}

func geocodePharmacies(ctx context.Context, g *geo.Geocoder, pharmacies []pharmacy) ([]geo.Candidate, error) {
	var out []geo.Candidate
	for _, ph := range pharmacies {
		loc, err := g.Locate(ctx, ph.Address)
		if err != nil {
			return nil, fmt.Errorf("pharmacy %q: %w", ph.Address, err)
		}
		out = append(out, geo.Candidate{Address: ph.Address, Zip: ph.Zip, Loc: loc})
	}
	return out, nil
}

// eligible drops out-of-state pharmacies that cannot serve the patient;
// New Jersey locations only vaccinate their own residents.
func eligible(candidates []geo.Candidate, state string) []geo.Candidate {
	if state != "PA" {
		return candidates
	}
	var out []geo.Candidate
	for _, c := range candidates {
		if strings.Contains(c.Address, "New Jersey") || strings.Contains(c.Address, ", NJ") {
			continue
		}
		out = append(out, c)
	}
	return out
}

// writeShards splits the queue round-robin so parallel bot processes each
// own a roughly equal share.
func writeShards(dir string, shards int, patients []patient.Patient, logger *logging.Logger) error {
	if shards < 1 {
		shards = 1
	}
	for i := 0; i < shards; i++ {
		var shard []patient.Patient
		for j := i; j < len(patients); j += shards {
			shard = append(shard, patients[j])
		}
		shardDir := filepath.Join(dir, fmt.Sprint(i+1))
		if err := os.MkdirAll(shardDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(shardDir, "patients.json")
		if err := queue.New(path).Save(shard); err != nil {
			return err
		}
		logger.Info("queue shard written", "path", path, "patients", len(shard))
	}
	return nil
}
