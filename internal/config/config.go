// Package config reads process settings through wbf/config: environment
// variables bound to viper keys, with command line flags taking precedence.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	wbfconfig "github.com/wb-go/wbf/config"

	"github.com/MyNameIsWhaaat/bookcomments/internal/logger"
)

// Store configures the reference comment store.
type Store struct {
	Port          string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	Admins        []string
	Log           logger.Config
}

// Feed configures the bookfeed watcher.
type Feed struct {
	StoreURL       string
	BookID         string
	Page           int
	PageSize       int
	Username       string
	Admin          bool
	PollInterval   time.Duration
	HealthInterval time.Duration
	RedisAddr      string
	RedisPassword  string
	Color          bool
	Log            logger.Config
}

// flagDef binds one long flag to a config key. Keys map to env names by
// upper-casing and replacing dots, so "database.url" reads DATABASE_URL.
type flagDef struct {
	long  string
	key   string
	def   any
	usage string
}

// load defines flags on a fresh global pflag set, since wbf binds through
// pflag.CommandLine, and parses args over the environment.
func load(name string, defs []flagDef, args []string) (*wbfconfig.Config, error) {
	pflag.CommandLine = pflag.NewFlagSet(name, pflag.ContinueOnError)

	c := wbfconfig.New()
	c.EnableEnv("")
	for _, d := range defs {
		c.SetDefault(d.key, d.def)
		if d.long == "" {
			continue
		}
		if err := c.DefineFlag("", d.long, d.key, d.def, d.usage); err != nil {
			return nil, err
		}
	}
	if err := pflag.CommandLine.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func LoadStore(args []string) (Store, error) {
	c, err := load("commentstore", []flagDef{
		{"port", "port", "8080", "listen port"},
		{"database-url", "database.url", "", "postgres DSN; empty keeps comments in memory"},
		{"redis-addr", "redis.addr", "", "redis address for versions and change notifications"},
		{"", "redis.password", "", ""},
		{"admins", "admins", "", "comma separated admin usernames"},
		{"log-level", "log.level", "info", "log level"},
		{"log-file", "log.file", "", "rotated log file"},
	}, args)
	if err != nil {
		return Store{}, err
	}

	cfg := Store{
		Port:          c.GetString("port"),
		DatabaseURL:   c.GetString("database.url"),
		RedisAddr:     c.GetString("redis.addr"),
		RedisPassword: c.GetString("redis.password"),
		Admins:        splitList(c.GetString("admins")),
		Log:           logger.Config{Level: c.GetString("log.level"), File: c.GetString("log.file")},
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Store{}, fmt.Errorf("invalid port %q", cfg.Port)
	}
	return cfg, nil
}

func LoadFeed(args []string) (Feed, error) {
	c, err := load("bookfeed", []flagDef{
		{"store", "store.url", "http://localhost:8080", "comment store base URL"},
		{"book", "book", "", "book id to watch"},
		{"page", "page", 1, "page number"},
		{"page-size", "page.size", 10, "top-level comments per page"},
		{"user", "bookfeed.user", "", "username to comment as"},
		{"admin", "admin", false, "show admin controls"},
		{"poll", "poll.interval", 30 * time.Second, "poll interval"},
		{"health-retry", "health.interval", 5 * time.Second, "store health retry interval"},
		{"redis-addr", "redis.addr", "", "redis address for change notifications"},
		{"", "redis.password", "", ""},
		{"color", "color", true, "colored output"},
		{"log-level", "log.level", "warn", "log level"},
		{"log-file", "log.file", "", "rotated log file"},
	}, args)
	if err != nil {
		return Feed{}, err
	}

	cfg := Feed{
		StoreURL:       c.GetString("store.url"),
		BookID:         c.GetString("book"),
		Page:           c.GetInt("page"),
		PageSize:       c.GetInt("page.size"),
		Username:       c.GetString("bookfeed.user"),
		Admin:          c.GetBool("admin"),
		PollInterval:   c.GetDuration("poll.interval"),
		HealthInterval: c.GetDuration("health.interval"),
		RedisAddr:      c.GetString("redis.addr"),
		RedisPassword:  c.GetString("redis.password"),
		Color:          c.GetBool("color"),
		Log:            logger.Config{Level: c.GetString("log.level"), File: c.GetString("log.file")},
	}

	if strings.TrimSpace(cfg.BookID) == "" {
		return Feed{}, fmt.Errorf("book id is required")
	}
	if cfg.Page < 1 || cfg.PageSize < 1 {
		return Feed{}, fmt.Errorf("page and page size must be positive")
	}
	// unparseable durations read back as zero
	if cfg.PollInterval <= 0 || cfg.HealthInterval <= 0 {
		return Feed{}, fmt.Errorf("intervals must be positive")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
