package mongo

import (
	"fmt"
	"net"
	"net/url"
	"os"

	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrConfParamMissing = fmt.Errorf("configuration parameter missing")

type Config struct {
	Host   string `toml:"host"`
	Port   string `toml:"port"`
	DBName string `toml:"dbName"`
	User   string `toml:"-"`
	Pass   string `toml:"-"`
}

// FromEnv overrides fields of c with the non-empty MONGO_* environment variables and
// reports the first required parameter that is still missing.
func (c *Config) FromEnv() error {
	setFromEnv(&c.Host, "MONGO_HOST")
	setFromEnv(&c.Port, "MONGO_PORT")
	setFromEnv(&c.DBName, "MONGO_DB_NAME")
	setFromEnv(&c.User, "MONGO_USER")
	setFromEnv(&c.Pass, "MONGO_PASS")

	switch {
	case c.Host == "":
		return fmt.Errorf("%w: MONGO_HOST", ErrConfParamMissing)
	case c.Port == "":
		return fmt.Errorf("%w: MONGO_PORT", ErrConfParamMissing)
	case c.DBName == "":
		return fmt.Errorf("%w: MONGO_DB_NAME", ErrConfParamMissing)
	}

	return nil
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) conString() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/",
	}
	if c.User != "" && c.Pass != "" {
		u.User = url.UserPassword(c.User, c.Pass)
	}
	return u.String()
}

func (c *Config) Options() *options.ClientOptions {
	return options.Client().ApplyURI(c.conString())
}
