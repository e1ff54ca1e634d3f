package database

import (
	"fmt"
	"net/url"
	"strconv"
)

// Config holds configuration for one database environment.
type Config struct {
	// Env tags the environment in dump file names (e.g. uat, prod).
	Env string `mapstructure:"env" default:""`
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"5432"`
	// User is the database user.
	User string `mapstructure:"user" default:"postgres"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name (a file path for sqlite).
	Name string `mapstructure:"name" default:"simulab"`
	// Driver is the database driver (postgres, mysql, sqlite).
	Driver string `mapstructure:"driver" default:"postgres"`
	// SSLMode is passed to postgres connections.
	SSLMode string `mapstructure:"sslmode" default:"disable"`
	// TimeoutSeconds bounds connection setup.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// URL returns a postgres connection URI for dbName without the password.
// External tools receive the password out of band.
func (c Config) URL(dbName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(c.User),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + dbName,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.TimeoutSeconds > 0 {
		q.Set("connect_timeout", strconv.Itoa(c.TimeoutSeconds))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c Config) timeout() int {
	if c.TimeoutSeconds <= 0 {
		return 30
	}
	return c.TimeoutSeconds
}
