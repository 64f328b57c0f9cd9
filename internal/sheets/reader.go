// Package sheets pulls patient signups out of the intake Google Sheet. The
// sheet is filled by a public signup form; the importer turns its rows into
// queue entries.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/slotseeker/slotseeker/internal/patient"
	"github.com/slotseeker/slotseeker/pkg/logging"
)

// Signup is one confirmed intake row, parsed into queue form plus the
// travel preference the importer resolves into target regions.
type Signup struct {
	Patient  patient.Patient
	MaxMiles int
}

// Reader fetches signup rows from one spreadsheet range.
type Reader struct {
	service       *sheetsapi.Service
	spreadsheetID string
	readRange     string
	logger        *logging.Logger
}

// NewReader builds a reader using an OAuth client-secret file and a cached
// user token. The token must already exist; run the importer's auth flow
// once to create it.
func NewReader(ctx context.Context, credentialsPath, tokenPath, spreadsheetID, readRange string, logger *logging.Logger) (*Reader, error) {
	if logger == nil {
		logger = logging.Default()
	}
	cfg, err := OAuthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}
	token, err := LoadToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("sheets: no cached token at %s, run auth first: %w", tokenPath, err)
	}

	service, err := sheetsapi.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &Reader{
		service:       service,
		spreadsheetID: spreadsheetID,
		readRange:     readRange,
		logger:        logger,
	}, nil
}

// OAuthConfig reads an installed-app client secret file.
func OAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("sheets: read credentials: %w", err)
	}
	cfg, err := google.ConfigFromJSON(data, sheetsapi.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse credentials: %w", err)
	}
	return cfg, nil
}

// LoadToken reads a cached OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// SaveToken caches an OAuth token for later runs.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Signups fetches and parses all confirmed signup rows.
func (r *Reader) Signups(ctx context.Context) ([]Signup, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, r.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: fetch %s: %w", r.readRange, err)
	}
	if len(resp.Values) == 0 {
		r.logger.Warn("signup sheet is empty", "range", r.readRange)
		return nil, nil
	}
	return ParseRows(resp.Values, r.logger), nil
}

// ParseRows turns a header row plus data rows into confirmed signups.
// Unconfirmed rows are dropped; malformed rows are logged and skipped so one
// bad signup never blocks an import run.
func ParseRows(values [][]interface{}, logger *logging.Logger) []Signup {
	if logger == nil {
		logger = logging.Default()
	}
	if len(values) < 2 {
		return nil
	}

	headers := make([]string, len(values[0]))
	for i, h := range values[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(fmt.Sprint(h)))
	}

	var signups []Signup
	for rowIdx, raw := range values[1:] {
		row := map[string]string{}
		for i, cell := range raw {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(fmt.Sprint(cell))
			}
		}
		if !strings.EqualFold(row["confirmed"], "yes") {
			continue
		}

		dob, err := patient.FormatDOB(row["dob"])
		if err != nil {
			logger.Warn("skipping signup with bad date of birth",
				"row", rowIdx+2, "name", row["first_name"], "error", err)
			continue
		}

		maxMiles := 0
		if fields := strings.Fields(row["max_distance"]); len(fields) > 0 {
			maxMiles, _ = strconv.Atoi(fields[0])
		}

		signups = append(signups, Signup{
			Patient: patient.Patient{
				SignupTimestamp:   row["timestamp"],
				FirstName:         row["first_name"],
				LastName:          row["last_name"],
				DOB:               dob,
				Phone:             patient.CleanPhone(row["phone"]),
				Email:             row["email"],
				Address:           row["street"],
				City:              row["city"],
				State:             row["state"],
				Zip:               row["zip_code"],
				ContactPreference: row["contact_preference"],
				CellPhone:         row["is_cell_phone"],
				HoursOfDay:        patient.ParseHours(row["times_of_day"]),
				DaysOfWeek:        patient.ParseDays(row["days_of_week"]),
				Notes:             row["notes"],
				Age:               row["age"],
				MaxDistance:       row["max_distance"],
			},
			MaxMiles: maxMiles,
		})
	}
	return signups
}
