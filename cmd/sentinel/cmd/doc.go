// Package cmd implements the sentinel command line: serve, migrate and scan.
package cmd
