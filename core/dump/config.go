package dump

// Config holds configuration for full database dumps.
type Config struct {
	// Dir is where dump archives are written.
	Dir string `mapstructure:"dir" default:"db_backups"`
	// PgDump is the pg_dump binary.
	PgDump string `mapstructure:"pg_dump" default:"pg_dump"`
	// PgRestore is the pg_restore binary.
	PgRestore string `mapstructure:"pg_restore" default:"pg_restore"`
	// Psql is the psql binary.
	Psql string `mapstructure:"psql" default:"psql"`
	// MaintenanceDB is the database psql connects to when dropping and creating.
	MaintenanceDB string `mapstructure:"maintenance_db" default:"postgres"`
}
