package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL   string `yaml:"ttl"`
		Limit int    `yaml:"limit"`
	} `yaml:"questions"`
	Rounds  map[int]Round `yaml:"rounds"`
	Watcher struct {
		ActivePoll string `yaml:"active_poll"`
		IdlePoll   string `yaml:"idle_poll"`
	} `yaml:"watcher"`
	Policy struct {
		PassRatio float64 `yaml:"pass_ratio"`
		// AdvancementMinimums maps a round to the absolute score that unlocks the next one.
		AdvancementMinimums map[int]int `yaml:"advancement_minimums"`
	} `yaml:"policy"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// Round configures pacing and choices for one round.
type Round struct {
	Mode            string   `yaml:"mode"`
	QuestionSeconds int      `yaml:"question_seconds"`
	BudgetSeconds   int      `yaml:"budget_seconds"`
	Variants        []string `yaml:"variants"`
}

// Default returns the settings used for keys absent from the YAML file.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Redis.TTL = "1m"
	cfg.Questions.TTL = "5m"
	cfg.Questions.Limit = 20
	cfg.Rounds = map[int]Round{
		1: {Mode: "per_question", QuestionSeconds: 60, Variants: []string{"python", "c"}},
		2: {Mode: "batched", QuestionSeconds: 60, BudgetSeconds: 1200},
		3: {Mode: "challenge", BudgetSeconds: 5400, Variants: []string{"dsa", "web"}},
	}
	cfg.Watcher.ActivePoll = "5s"
	cfg.Watcher.IdlePoll = "10s"
	cfg.Policy.PassRatio = 0.5
	cfg.Policy.AdvancementMinimums = map[int]int{1: 10}
	cfg.RabbitMQ.Exchange = "contest.events"
	cfg.Metrics.Enabled = true
	return cfg
}

// Load reads YAML config from path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
