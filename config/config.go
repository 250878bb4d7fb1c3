// Package config loads the YAML configuration shared by the play, train and
// server entry points.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/willmacd/dql-tetris/tetris"
)

const DefaultPath = "./tetris.yaml"

type Config struct {
	HighScorePath string  `yaml:"highscore_path"`
	LogFile       string  `yaml:"log_file"`
	LogLevel      string  `yaml:"log_level"`
	ClearRule     string  `yaml:"clear_rule"`
	Gravity       Gravity `yaml:"gravity"`
	Agent         Agent   `yaml:"agent"`
	Server        Server  `yaml:"server"`
	Client        Client  `yaml:"client"`
}

type Gravity struct {
	Initial time.Duration `yaml:"initial"`
	Minimum time.Duration `yaml:"minimum"`
	Step    time.Duration `yaml:"step"`
	Every   time.Duration `yaml:"every"`
}

type Agent struct {
	Episodes int     `yaml:"episodes"`
	Epsilon  float64 `yaml:"epsilon"`
	Alpha    float64 `yaml:"alpha"`
	Gamma    float64 `yaml:"gamma"`
	Memory   int     `yaml:"memory"`
	Batch    int     `yaml:"batch"`
	Epochs   int     `yaml:"epochs"`
	Hidden   []int   `yaml:"hidden"`
	// GravityEvery is the number of agent actions between two gravity steps.
	GravityEvery int    `yaml:"gravity_every"`
	MaxSteps     int    `yaml:"max_steps"`
	ModelPath    string `yaml:"model_path"`
	Seed         uint64 `yaml:"seed"`
}

type Server struct {
	GRPCAddr string `yaml:"grpc_addr"`
	HTTPAddr string `yaml:"http_addr"`
	// Retention is how long ended games stay listed before they are dropped.
	Retention time.Duration `yaml:"retention"`
}

type Client struct {
	Name       string `yaml:"name"`
	ServerAddr string `yaml:"server_addr"`
}

func Default() *Config {
	return &Config{
		HighScorePath: "./highscore.txt",
		LogFile:       "tetris.log",
		LogLevel:      "info",
		ClearRule:     tetris.Compact.String(),
		Gravity: Gravity{
			Initial: 350 * time.Millisecond,
			Minimum: 150 * time.Millisecond,
			Step:    5 * time.Millisecond,
			Every:   5 * time.Second,
		},
		Agent: Agent{
			Episodes:     25,
			Epsilon:      1.0 / 25,
			Alpha:        2.5e-3,
			Gamma:        0.8,
			Memory:       10000,
			Batch:        1000,
			Epochs:       1,
			Hidden:       []int{128, 64, 32},
			GravityEvery: 4,
			MaxSteps:     20000,
			ModelPath:    "./dql_tetris.gob",
		},
		Server: Server{
			GRPCAddr:  ":9000",
			HTTPAddr:  ":8080",
			Retention: 30 * time.Minute,
		},
		Client: Client{
			Name:       "player",
			ServerAddr: "localhost:9000",
		},
	}
}

// Load reads the file at path over the defaults. A missing file is created
// with the defaults so it can be edited afterwards.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := tetris.ParseClearRule(c.ClearRule); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Gravity.Initial <= 0 || c.Gravity.Minimum <= 0 {
		return errors.New("gravity intervals must be positive")
	}
	if c.Agent.GravityEvery < 1 {
		return errors.New("agent.gravity_every must be at least 1")
	}
	if c.Agent.Memory < 1 || c.Agent.Batch < 1 {
		return errors.New("agent.memory and agent.batch must be at least 1")
	}
	if c.Server.Retention <= 0 {
		return errors.New("server.retention must be positive")
	}
	return nil
}

func (c *Config) Rule() tetris.ClearRule {
	r, _ := tetris.ParseClearRule(c.ClearRule)
	return r
}

func (c *Config) NewGravity() *tetris.Gravity {
	g := c.Gravity
	return tetris.NewGravity(g.Initial, g.Minimum, g.Step, g.Every)
}

func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return l, nil
}

// Logger opens the configured log file and returns a JSON logger writing to it,
// with the function that closes the file. "-" logs to stderr.
func (c *Config) Logger() (*slog.Logger, func() error, error) {
	level, err := c.Level()
	if err != nil {
		return nil, nil, err
	}
	var w io.Writer = os.Stderr
	closer := func() error { return nil }
	if name := strings.TrimSpace(c.LogFile); name != "" && name != "-" {
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closer = f.Close
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), closer, nil
}
