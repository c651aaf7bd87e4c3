// Package fetcher talks to the site being migrated.
//
// It has three parts:
//
//   - Browser renders pages in headless Chrome through chromedp. One
//     browser process is started per run and every page gets its own tab,
//     which is closed whether the navigation succeeds or fails.
//   - Downloader streams images and documents to disk over plain HTTP,
//     rate limited and size capped.
//   - RobotsAgent answers robots.txt questions for the crawler, caching
//     one rule set per host.
//
// Browser and Downloader share the proxy setting: http, https and socks5
// proxy URLs are accepted.
package fetcher
