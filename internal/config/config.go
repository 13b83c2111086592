package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultRegion      = "cn"
	DefaultAPIVersion  = "1.1"
	DefaultLogLevel    = "info"
	DefaultProbe       = ProbeNative
	DefaultLipo        = "lipo"
	DefaultDwarfdump   = "dwarfdump"
	DefaultDumpSyms    = "leancloud_dump_syms"
	DefaultConcurrency = 1
	DefaultHistoryFile = "history.db"

	DefaultDumpTimeout   = 5 * time.Minute
	DefaultUploadTimeout = 2 * time.Minute

	ProbeNative = "native"
	ProbeTool   = "tool"

	maxConcurrency = 32

	configFileName           = ".dsymup.toml"
	configDirEnvKey          = "DSYMUP_CONFIG_DIR"
	trustProjectConfigEnvKey = "DSYMUP_TRUST_PROJECT_CONFIG"
	regionEnvKey             = "DSYMUP_REGION"
	appIDEnvKey              = "DSYMUP_APP_ID"
	appKeyEnvKey             = "DSYMUP_APP_KEY"
	historyDBEnvKey          = "DSYMUP_HISTORY_DB"
	stateDirName             = ".dsymup"
)

// DumpConfig configures slice discovery and the external symbol tools.
type DumpConfig struct {
	Probe       string   `toml:"probe"`
	Lipo        string   `toml:"lipo"`
	Dwarfdump   string   `toml:"dwarfdump"`
	DumpSyms    string   `toml:"dump_syms"`
	Concurrency int      `toml:"concurrency"`
	Timeout     Duration `toml:"timeout"`
}

// UploadConfig configures the upload request.
type UploadConfig struct {
	Timeout Duration `toml:"timeout"`
}

// HistoryConfig configures the local upload ledger.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// Config defines runtime configuration for dsymup.
type Config struct {
	Region     string            `toml:"region"`
	APIVersion string            `toml:"api_version"`
	LogLevel   string            `toml:"log_level"`
	AppID      string            `toml:"app_id"`
	AppKey     string            `toml:"app_key"`
	Regions    map[string]string `toml:"regions"`
	Dump       DumpConfig        `toml:"dump"`
	Upload     UploadConfig      `toml:"upload"`
	History    HistoryConfig     `toml:"history"`

	TrustedProjectConfigPath string `toml:"-"`
}

// Duration decodes TOML strings such as "90s" or bare integers of seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalTOML(value any) error {
	var (
		parsed time.Duration
		err    error
	)
	switch v := value.(type) {
	case string:
		parsed, err = parseDuration(v)
	case int64:
		parsed, err = parseDuration(strconv.FormatInt(v, 10))
	default:
		err = fmt.Errorf("invalid duration %v", value)
	}
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		Region:     DefaultRegion,
		APIVersion: DefaultAPIVersion,
		LogLevel:   DefaultLogLevel,
		Dump: DumpConfig{
			Probe:       DefaultProbe,
			Lipo:        DefaultLipo,
			Dwarfdump:   DefaultDwarfdump,
			DumpSyms:    DefaultDumpSyms,
			Concurrency: DefaultConcurrency,
			Timeout:     Duration{DefaultDumpTimeout},
		},
		Upload: UploadConfig{
			Timeout: Duration{DefaultUploadTimeout},
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"region",
	"api_version",
	"log_level",
	"app_id",
	"app_key",
	"dump.probe",
	"dump.lipo",
	"dump.dwarfdump",
	"dump.dump_syms",
	"dump.concurrency",
	"dump.timeout",
	"upload.timeout",
	"history.enabled",
	"history.db_path",
}

// AllowedKeys returns the set of valid config keys.
// Region table entries are addressed as regions.<code>.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	if code, ok := strings.CutPrefix(key, "regions."); ok {
		return isRegionCode(code)
	}
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	if code, ok := strings.CutPrefix(key, "regions."); ok && isRegionCode(code) {
		return c.Regions[code], nil
	}
	switch key {
	case "region":
		return c.Region, nil
	case "api_version":
		return c.APIVersion, nil
	case "log_level":
		return c.LogLevel, nil
	case "app_id":
		return c.AppID, nil
	case "app_key":
		if c.AppKey == "" {
			return "", nil
		}
		return "(set)", nil
	case "dump.probe":
		return c.Dump.Probe, nil
	case "dump.lipo":
		return c.Dump.Lipo, nil
	case "dump.dwarfdump":
		return c.Dump.Dwarfdump, nil
	case "dump.dump_syms":
		return c.Dump.DumpSyms, nil
	case "dump.concurrency":
		return strconv.Itoa(c.Dump.Concurrency), nil
	case "dump.timeout":
		return c.Dump.Timeout.String(), nil
	case "upload.timeout":
		return c.Upload.Timeout.String(), nil
	case "history.enabled":
		return strconv.FormatBool(c.History.Enabled), nil
	case "history.db_path":
		return c.History.DBPath, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if region := strings.TrimSpace(os.Getenv(regionEnvKey)); region != "" {
		cfg.Region = region
	}
	if id := strings.TrimSpace(os.Getenv(appIDEnvKey)); id != "" {
		cfg.AppID = id
	}
	if key := strings.TrimSpace(os.Getenv(appKeyEnvKey)); key != "" {
		cfg.AppKey = key
	}
	if dbPath := strings.TrimSpace(os.Getenv(historyDBEnvKey)); dbPath != "" {
		cfg.History.DBPath = dbPath
	}

	if cfg.History.DBPath == "" {
		if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
			cfg.History.DBPath = filepath.Join(dir, DefaultHistoryFile)
		} else if home, err := os.UserHomeDir(); err == nil {
			cfg.History.DBPath = filepath.Join(home, stateDirName, DefaultHistoryFile)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.Region = strings.TrimSpace(c.Region)
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	c.APIVersion = strings.Trim(strings.TrimSpace(c.APIVersion), "/")
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}

	switch c.Dump.Probe = strings.ToLower(strings.TrimSpace(c.Dump.Probe)); c.Dump.Probe {
	case "":
		c.Dump.Probe = DefaultProbe
	case ProbeNative, ProbeTool:
	default:
		return fmt.Errorf("dump.probe must be %q or %q, got %q", ProbeNative, ProbeTool, c.Dump.Probe)
	}
	c.Dump.Lipo = chooseFirst(c.Dump.Lipo, DefaultLipo)
	c.Dump.Dwarfdump = chooseFirst(c.Dump.Dwarfdump, DefaultDwarfdump)
	c.Dump.DumpSyms = chooseFirst(c.Dump.DumpSyms, DefaultDumpSyms)
	if c.Dump.Concurrency < 1 {
		c.Dump.Concurrency = DefaultConcurrency
	}
	if c.Dump.Concurrency > maxConcurrency {
		c.Dump.Concurrency = maxConcurrency
	}
	if c.Dump.Timeout.Duration <= 0 {
		c.Dump.Timeout = Duration{DefaultDumpTimeout}
	}
	if c.Upload.Timeout.Duration <= 0 {
		c.Upload.Timeout = Duration{DefaultUploadTimeout}
	}

	c.Regions = normalizeRegions(c.Regions)
	return nil
}

// RegionCodes returns the configured region extensions in sorted order.
func (c *Config) RegionCodes() []string {
	codes := make([]string, 0, len(c.Regions))
	for code := range c.Regions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func normalizeRegions(raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for code, domain := range raw {
		code = strings.ToLower(strings.TrimSpace(code))
		domain = strings.TrimSpace(domain)
		if !isRegionCode(code) || domain == "" {
			continue
		}
		out[code] = domain
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func isRegionCode(code string) bool {
	if code == "" {
		return false
	}
	for _, r := range code {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "dump.concurrency":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return int64(parsed), nil
	case "dump.timeout", "upload.timeout":
		parsed, err := parseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be a duration: %w", key, err)
		}
		return parsed.String(), nil
	case "history.enabled":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "dump.probe":
		value = strings.ToLower(value)
		if value != ProbeNative && value != ProbeTool {
			return nil, fmt.Errorf("%s must be %q or %q", key, ProbeNative, ProbeTool)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func parseDuration(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", raw)
}

func chooseFirst(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
