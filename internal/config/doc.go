// Package config provides configuration structures and utilities for merrlog.
// It defines the crawl target, concurrency, retry, and output options, their
// defaults, validation rules, and the YAML configuration file loader.
package config
