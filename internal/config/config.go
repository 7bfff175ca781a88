// Package config resolves where folio keeps its database and output files,
// and which defaults it reports in. Values come from the user config file,
// then environment variables, then runtime flags, later sources winning.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v10"
)

const (
	defaultDBName   = "folio.db"
	defaultCurrency = "USD"
)

type UserConfig struct {
	DBName        string `json:"db_name"`
	DataDir       string `json:"data_dir"`
	OutputDir     string `json:"output_dir"`
	Currency      string `json:"currency"`
	RatesAPIKey   string `json:"rates_api_key,omitempty"`
	SetupComplete bool   `json:"setup_complete"`
}

// Overrides are the environment variables that take precedence over the
// config file.
type Overrides struct {
	DBPath      string `env:"FOLIO_DB_PATH"`
	DataDir     string `env:"FOLIO_DATA_DIR"`
	OutputDir   string `env:"FOLIO_OUTPUT_DIR"`
	Currency    string `env:"FOLIO_CURRENCY"`
	RatesAPIKey string `env:"FREECURRENCYAPI_KEY"`
}

// LoadOverrides reads Overrides from the environment.
func LoadOverrides() (Overrides, error) {
	var o Overrides
	if err := env.Parse(&o); err != nil {
		return Overrides{}, fmt.Errorf("parse environment: %w", err)
	}
	return o, nil
}

var runtimeDataDir string
var runtimeOutputDir string
var runtimePort = 8000

func IsMacOS() bool {
	return runtime.GOOS == "darwin"
}

func IsWindows() bool {
	return runtime.GOOS == "windows"
}

func SetRuntimeDataDir(dir string) {
	runtimeDataDir = dir
}

func SetRuntimeOutputDir(dir string) {
	runtimeOutputDir = dir
}

func SetRuntimePort(port int) {
	if port > 0 {
		runtimePort = port
	}
}

func GetRuntimePort() int {
	return runtimePort
}

func appConfigDir() (string, error) {
	if IsMacOS() {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "Folio"), nil
	}
	if IsWindows() {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "Folio"), nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "folio"), nil
	}
	return filepath.Join(configDir, "folio"), nil
}

func appConfigPath() (string, error) {
	dir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// localConfigPath finds a config.json next to the working directory or the
// executable, used for portable installs.
func localConfigPath() string {
	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, "config.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "config.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func IsFirstRun() bool {
	path, err := appConfigPath()
	if err != nil {
		return true
	}
	_, err = os.Stat(path)
	return err != nil
}

func LoadUserConfig() UserConfig {
	defaults := UserConfig{
		DBName:   defaultDBName,
		Currency: defaultCurrency,
	}
	configPath, err := appConfigPath()
	if err != nil {
		return defaults
	}
	pathToUse := ""
	if _, err := os.Stat(configPath); err == nil {
		pathToUse = configPath
	} else if local := localConfigPath(); local != "" {
		pathToUse = local
	}
	if pathToUse == "" {
		return defaults
	}
	file, err := os.Open(pathToUse)
	if err != nil {
		return defaults
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&defaults); err != nil {
		return defaults
	}
	if defaults.DBName == "" {
		defaults.DBName = defaultDBName
	}
	if defaults.Currency == "" {
		defaults.Currency = defaultCurrency
	}
	return defaults
}

func SaveUserConfig(cfg UserConfig) error {
	path, err := appConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// CompleteSetup records the data directory, database name and default
// currency chosen at setup and returns the data directory.
func CompleteSetup(customDataDir, dbName, currency string) (string, error) {
	cfg := LoadUserConfig()
	if name := strings.TrimSpace(dbName); name != "" {
		if strings.ContainsRune(name, os.PathSeparator) {
			return "", fmt.Errorf("database name %q must not contain a path separator", name)
		}
		cfg.DBName = name
	}
	if code := strings.ToUpper(strings.TrimSpace(currency)); code != "" {
		if len(code) != 3 {
			return "", fmt.Errorf("invalid currency %q", currency)
		}
		cfg.Currency = code
	}

	dataDir := strings.TrimSpace(customDataDir)
	if dataDir == "" {
		dir, err := appConfigDir()
		if err != nil {
			return "", err
		}
		dataDir = dir
	}
	dataDir = filepath.Clean(dataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	cfg.DataDir = dataDir
	cfg.SetupComplete = true
	if err := SaveUserConfig(cfg); err != nil {
		return "", err
	}
	return dataDir, nil
}

func ensureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func GetDataDir() (string, error) {
	if runtimeDataDir != "" {
		return ensureDir(runtimeDataDir)
	}
	o, err := LoadOverrides()
	if err != nil {
		return "", err
	}
	if o.DataDir != "" {
		return ensureDir(o.DataDir)
	}
	cfg := LoadUserConfig()
	if cfg.DataDir != "" {
		return ensureDir(cfg.DataDir)
	}
	defaultDir, err := appConfigDir()
	if err != nil {
		return "", err
	}
	return ensureDir(defaultDir)
}

func GetDBPath() (string, error) {
	o, err := LoadOverrides()
	if err != nil {
		return "", err
	}
	if o.DBPath != "" {
		return o.DBPath, nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, LoadUserConfig().DBName), nil
}

// GetOutputDir is where the JavaScript data files are written. It defaults
// to js/output under the data directory.
func GetOutputDir() (string, error) {
	if runtimeOutputDir != "" {
		return runtimeOutputDir, nil
	}
	o, err := LoadOverrides()
	if err != nil {
		return "", err
	}
	if o.OutputDir != "" {
		return o.OutputDir, nil
	}
	if cfg := LoadUserConfig(); cfg.OutputDir != "" {
		return cfg.OutputDir, nil
	}
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "js", "output"), nil
}

// GetCurrency is the default report currency.
func GetCurrency() string {
	if o, err := LoadOverrides(); err == nil && o.Currency != "" {
		return strings.ToUpper(o.Currency)
	}
	return strings.ToUpper(LoadUserConfig().Currency)
}

// ErrNoRatesAPIKey is returned when no exchange rate API key is configured.
var ErrNoRatesAPIKey = errors.New("no exchange rate API key configured, set FREECURRENCYAPI_KEY")

// GetRatesAPIKey returns the freecurrencyapi key.
func GetRatesAPIKey() (string, error) {
	if o, err := LoadOverrides(); err == nil && o.RatesAPIKey != "" {
		return o.RatesAPIKey, nil
	}
	if key := LoadUserConfig().RatesAPIKey; key != "" {
		return key, nil
	}
	return "", ErrNoRatesAPIKey
}
