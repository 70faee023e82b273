package config

import (
	"fmt"
	"time"
)

// File represents the structure of the .merrlog configuration file.
// Every field is optional; a set field overrides the built-in default but
// is itself overridden by an explicit CLI flag.
//
// Durations are YAML strings in Go syntax ("500ms", "2s", "1m").
type File struct {
	// BaseURL overrides the site root.
	BaseURL string `yaml:"base_url,omitempty"`

	// ListingPath overrides the category path.
	ListingPath string `yaml:"listing_path,omitempty"`

	// PageParam overrides the pagination query parameter.
	PageParam string `yaml:"page_param,omitempty"`

	// Pages overrides the number of index pages to crawl.
	Pages int `yaml:"pages,omitempty"`

	// ChunkSize overrides the number of concurrently fetched index pages.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// Workers overrides the per-page detail worker count.
	Workers int `yaml:"workers,omitempty"`

	// Retries overrides the maximum fetch attempts per URL.
	Retries int `yaml:"retries,omitempty"`

	// Backoff overrides the base retry wait.
	Backoff string `yaml:"backoff,omitempty"`

	// Timeout overrides the per-request timeout.
	Timeout string `yaml:"timeout,omitempty"`

	// Delay overrides the politeness delay between requests.
	Delay string `yaml:"delay,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Headers are extra HTTP headers to include in every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Output overrides the CSV output file path.
	Output string `yaml:"output,omitempty"`

	// StoreDir overrides the database directory.
	StoreDir string `yaml:"store_dir,omitempty"`
}

// ApplyTo copies every set field of the file onto cfg.
// Unset fields (empty strings, zero ints) leave cfg untouched, so the file
// sits between the built-in defaults and the CLI flags in precedence.
func (f *File) ApplyTo(cfg *Config) error {
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.ListingPath != "" {
		cfg.ListingPath = f.ListingPath
	}
	if f.PageParam != "" {
		cfg.PageParam = f.PageParam
	}
	if f.Pages != 0 {
		cfg.Pages = f.Pages
	}
	if f.ChunkSize != 0 {
		cfg.ChunkSize = f.ChunkSize
	}
	if f.Workers != 0 {
		cfg.Workers = f.Workers
	}
	if f.Retries != 0 {
		cfg.Retries = f.Retries
	}
	if f.Backoff != "" {
		d, err := time.ParseDuration(f.Backoff)
		if err != nil {
			return fmt.Errorf("config file: invalid backoff %q: %w", f.Backoff, err)
		}
		cfg.Backoff = d
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("config file: invalid timeout %q: %w", f.Timeout, err)
		}
		cfg.Timeout = d
	}
	if f.Delay != "" {
		d, err := time.ParseDuration(f.Delay)
		if err != nil {
			return fmt.Errorf("config file: invalid delay %q: %w", f.Delay, err)
		}
		cfg.Delay = d
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if len(f.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for k, v := range f.Headers {
			cfg.Headers[k] = v
		}
	}
	if f.Output != "" {
		cfg.OutputFile = f.Output
	}
	if f.StoreDir != "" {
		cfg.DBDir = f.StoreDir
	}
	return nil
}
