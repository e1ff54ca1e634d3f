package interchange

// Config holds configuration for interchange files.
type Config struct {
	// Folder is the local directory holding one file per table.
	Folder string `mapstructure:"folder" default:"db_backups"`
	// Compression is either empty (plain CSV) or "zstd".
	Compression string `mapstructure:"compression" default:""`
	// NullTokens are field values read back as missing, besides the empty field.
	NullTokens []string `mapstructure:"null_tokens" default:"NaN"`
}
