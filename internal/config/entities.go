package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/naoina/toml"

	"github.com/peternagy/mongoplug/internal/credential"
	"github.com/peternagy/mongoplug/internal/database"
	"github.com/peternagy/mongoplug/internal/types"
)

// DefaultHealthCheckSeconds is used when the file does not set an interval.
const DefaultHealthCheckSeconds = 60

var urlPattern = regexp.MustCompile(`^mongodb://.*:\d{3,5}(/\?.*)?$`)

// PasswordResolver turns a configured pwd value into the cleartext password.
type PasswordResolver interface {
	Resolve(value string) (string, error)
}

type fileEntity struct {
	ID    string `toml:"id"`
	Title string `toml:"title"`
	URL   string `toml:"url"`
	User  string `toml:"user"`
	Pwd   string `toml:"pwd"`
	DB    string `toml:"db"`
}

type file struct {
	HealthCheckSeconds int          `toml:"health_check_seconds"`
	Entity             []fileEntity `toml:"entity"`
}

// Entities is a loaded entity file.
type Entities struct {
	// HealthInterval is zero when periodic checks are disabled.
	HealthInterval time.Duration
	Entities       []types.EntityConfig
}

// ValidateURL checks a connection string against the accepted form
// mongodb://<host>:<port>[/?options].
func ValidateURL(url string) error {
	if !urlPattern.MatchString(url) {
		return fmt.Errorf("url %q must look like mongodb://host:port or mongodb://host:port/?options", url)
	}
	return nil
}

// Loader reads entity files.
type Loader struct {
	passwords PasswordResolver
}

// NewLoader creates a loader. A nil resolver keeps passwords as written.
func NewLoader(passwords PasswordResolver) *Loader {
	return &Loader{passwords: passwords}
}

// Load reads and validates an entity file.
func (l *Loader) Load(path string) (*Entities, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity file: %w", err)
	}
	return l.Parse(data)
}

// Parse decodes and validates entity file contents.
func (l *Loader) Parse(data []byte) (*Entities, error) {
	f := file{HealthCheckSeconds: DefaultHealthCheckSeconds}
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse entity file: %w", err)
	}
	if f.HealthCheckSeconds < 0 {
		return nil, fmt.Errorf("health_check_seconds cannot be negative")
	}

	out := &Entities{HealthInterval: time.Duration(f.HealthCheckSeconds) * time.Second}
	seen := make(map[string]bool, len(f.Entity))
	for i, e := range f.Entity {
		if e.ID == "" {
			return nil, fmt.Errorf("entity #%d has no id", i+1)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate entity id %q", e.ID)
		}
		seen[e.ID] = true

		url := e.URL
		if url == "" {
			url = types.DefaultURL
		}
		if err := ValidateURL(url); err != nil {
			return nil, fmt.Errorf("entity %q: %w", e.ID, err)
		}
		if e.DB != "" {
			if err := database.ValidateDatabaseName(e.DB); err != nil {
				return nil, fmt.Errorf("entity %q: %w", e.ID, err)
			}
		}

		password := e.Pwd
		if l.passwords != nil && password != "" {
			resolved, err := l.passwords.Resolve(password)
			if err != nil {
				return nil, fmt.Errorf("entity %q: %w", e.ID, err)
			}
			password = resolved
		}
		// A password embedded in the url moves into the config so it never reaches logs.
		url, inline := credential.ExtractPasswordFromURI(url)
		if password == "" {
			password = inline
		}

		out.Entities = append(out.Entities, types.EntityConfig{
			ID:    e.ID,
			Title: e.Title,
			ConnectionConfig: types.ConnectionConfig{
				URL:      url,
				User:     e.User,
				Password: password,
				Database: e.DB,
			},
		})
	}
	return out, nil
}
