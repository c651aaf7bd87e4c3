// Package main provides the entry point for the sitemigrate CLI.
//
// sitemigrate crawls a website in a headless browser and writes a migration
// bundle: one JSON file per page, the downloaded media, a URL mapping, the
// site structure and a Markdown migration report.
//
// Usage:
//
//	sitemigrate crawl https://www.example.com/
//	sitemigrate history --list example.com
//
// See --help for all available options.
package main

// main is the entry point for sitemigrate.
func main() {
	Execute()
}
