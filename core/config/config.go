package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"envsync/core/database"
	"envsync/core/dump"
	"envsync/core/interchange"
	"envsync/core/logger"
	"envsync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultFile is the optional YAML file looked up next to .env.
const DefaultFile = "envsync.yaml"

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Source is the database exports are taken from (UAT).
	Source database.Config `mapstructure:"source"`
	// Destination is the database restores are applied to (prod).
	Destination database.Config `mapstructure:"destination"`
	// Storage holds configuration for the object storage interchange files travel through.
	Storage storage.Config `mapstructure:"storage"`
	// Sync holds the interchange file settings and the table batches.
	Sync Sync `mapstructure:"sync"`
	// Dump holds configuration for full database dumps.
	Dump dump.Config `mapstructure:"dump"`
	// Rewrite holds the URL prefix replacement run after a restore.
	Rewrite Rewrite `mapstructure:"rewrite"`
}

// Sync configures what gets exported and restored.
type Sync struct {
	interchange.Config `mapstructure:",squash"`
	// Tables are exported by the export command. Empty means every batch table.
	Tables []string `mapstructure:"tables" default:""`
	// Batches are restored in order.
	Batches []Batch `mapstructure:"batches"`
}

// Batch is one configured restore batch.
type Batch struct {
	Name   string   `mapstructure:"name"`
	Key    string   `mapstructure:"key"`
	Tables []string `mapstructure:"tables"`
}

// Rewrite configures the URL rewrite.
type Rewrite struct {
	OldPrefix string   `mapstructure:"old_prefix" default:""`
	NewPrefix string   `mapstructure:"new_prefix" default:""`
	Targets   []Target `mapstructure:"targets"`
}

// Target is a column holding URLs.
type Target struct {
	Table  string `mapstructure:"table"`
	Column string `mapstructure:"column"`
}

// ExportTables returns Sync.Tables, or every batch table in batch order
// when none are listed.
func (c *Config) ExportTables() []string {
	if len(c.Sync.Tables) > 0 {
		return c.Sync.Tables
	}
	var tables []string
	for _, b := range c.Sync.Batches {
		tables = append(tables, b.Tables...)
	}
	return tables
}

// LoadConfig loads configuration from the .env file in path, environment
// variables and an optional YAML file. file overrides the default
// <path>/envsync.yaml and must exist when given.
func LoadConfig(path, file string) (*Config, error) {
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(filepath.Join(path, ".env"))

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")
	v.SetDefault("source.env", "uat")
	v.SetDefault("destination.env", "prod")

	if err := readFile(v, path, file); err != nil {
		return nil, err
	}

	// Map environment variables to nested keys (e.g. DESTINATION_HOST -> destination.host)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func readFile(v *viper.Viper, path, file string) error {
	required := file != ""
	if !required {
		file = filepath.Join(path, DefaultFile)
	}

	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("config file %s: %w", file, err)
	}

	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", file, err)
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
// Lists of structs only come from the config file and get no default.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Squashed structs share the parent prefix
		if strings.HasSuffix(tag, ",squash") {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), prefix)
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		if field.Type.Kind() == reflect.Slice && field.Type.Elem().Kind() == reflect.Struct {
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
