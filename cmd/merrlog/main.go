// Package main provides the entry point for the merrlog CLI.
//
// merrlog crawls the used-car listings on merrjep.al and records every
// listing's attributes and price into a CSV file and a local SQLite database.
//
// Usage:
//
//	merrlog crawl
//	merrlog crawl --pages 50 --workers 20
//	merrlog runs
//
// See --help for all available options.
package main

// main is the entry point for merrlog.
func main() {
	Execute()
}
