// Package config provides configuration management for envsync.
//
// Values come, in increasing precedence, from `default` struct tags, an
// optional envsync.yaml file, and environment variables (a .env file in the
// working directory is loaded into the environment first). Nested keys map
// to variables by replacing dots with underscores, so destination.host is
// DESTINATION_HOST.
//
// # Configuration Structure
//
//   - Log: logging level and format
//   - Source, Destination: database connections (UAT and prod)
//   - Storage: S3/MinIO mirror for interchange files
//   - Sync: interchange folder, compression, null tokens, tables and batches
//   - Dump: pg_dump/pg_restore/psql binaries and the backup directory
//   - Rewrite: URL prefix replacement and its target columns
//
// Batches and rewrite targets are lists of objects and can only be set in
// the YAML file:
//
//	sync:
//	  batches:
//	    - name: core
//	      key: id
//	      tables: [school_department, simulab_course]
//	rewrite:
//	  old_prefix: http://uat.example.com:8169
//	  new_prefix: http://localhost:8070
//	  targets:
//	    - {table: quiz_image_model, column: image_url}
//
// # Usage
//
//	cfg, err := config.LoadConfig(".", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Destination.Host)
package config
