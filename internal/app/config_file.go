package app

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the optional yaml configuration schema. Values from the file
// fill in whatever the flags and environment left unset; they never override.
type FileConfig struct {
	LLM struct {
		BaseURL      string `yaml:"base"`
		Model        string `yaml:"model"`
		APIKey       string `yaml:"key"`
		SystemPrompt string `yaml:"systemPrompt"`
	} `yaml:"llm"`

	Fetch struct {
		// Timeout is a Go duration string, e.g. "15s".
		Timeout   string `yaml:"timeout"`
		UserAgent string `yaml:"userAgent"`
	} `yaml:"fetch"`

	Resolver struct {
		IntermediaryHost string `yaml:"intermediaryHost"`
		WaitBudget       string `yaml:"waitBudget"`
	} `yaml:"resolver"`

	DeepFetch      *bool  `yaml:"deepFetch"`
	OverallTimeout string `yaml:"overallTimeout"`
	Verbose        *bool  `yaml:"verbose"`
}

// LoadFileConfig reads and parses a yaml config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

// ApplyFile merges fc into cfg, filling only unset fields.
func (c *Config) ApplyFile(fc FileConfig) {
	if c.LLMBaseURL == "" {
		c.LLMBaseURL = fc.LLM.BaseURL
	}
	if c.LLMModel == "" {
		c.LLMModel = fc.LLM.Model
	}
	if c.LLMAPIKey == "" {
		c.LLMAPIKey = fc.LLM.APIKey
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = fc.LLM.SystemPrompt
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = parseDuration(fc.Fetch.Timeout)
	}
	if c.UserAgent == "" {
		c.UserAgent = fc.Fetch.UserAgent
	}
	if c.IntermediaryHost == "" {
		c.IntermediaryHost = fc.Resolver.IntermediaryHost
	}
	if c.ResolverWait == 0 {
		c.ResolverWait = parseDuration(fc.Resolver.WaitBudget)
	}
	if c.OverallTimeout == 0 {
		c.OverallTimeout = parseDuration(fc.OverallTimeout)
	}
	if fc.DeepFetch != nil {
		c.DeepFetch = *fc.DeepFetch
	}
	if fc.Verbose != nil && !c.Verbose {
		c.Verbose = *fc.Verbose
	}
}

// parseDuration tolerates empty and malformed values; a bad duration in the
// file falls back to the built-in default rather than failing startup.
func parseDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
