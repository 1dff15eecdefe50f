// argus runs declarative API test suites written in YAML.
//
// Usage:
//
//	argus                         Run every *.yml / *.yaml suite in the working directory
//	argus <suite>...              Run the given suite files in order
//	argus --format json ...       Print results as JSON instead of tables
//	argus --xlsx report.xlsx ...  Also write a spreadsheet report
//	argus version                 Print the version
//
// Settings come from flags, ARGUS_* environment variables, and an optional
// argus.yaml in the working directory (or --config <path>).
//
// The exit code is 0 when every test passed and 2 on usage or configuration
// errors. Any other failure exits 1: a failed test, a suite that could not
// be loaded, no suites found, or a report that could not be written.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
