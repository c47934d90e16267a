package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error")
	flags.StringP("auth-type", "a", "", "Authentication type: none or apikey")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	flags.Bool("auth-allow-remote", false, "Accept SSE clients from non-loopback addresses (requires apikey auth)")

	flags.StringP("data-dir", "d", "", "Directory for the index, checkpoints and exclusion settings")
	flags.String("home-dir", "", "Home directory to walk first (default: the current user's home)")
	flags.StringSliceP("exclude-paths", "x", nil, "Absolute path prefixes to exclude from the index (comma-separated)")
	flags.StringSlice("ignore-patterns", nil, "Glob patterns to exclude from the index, e.g. **/node_modules (comma-separated)")
	flags.Bool("walk-on-start", false, "Walk the filesystem in the background when the server starts")
	flags.Int("suggest-limit", 0, "Default number of name suggestions")
	flags.Int("search-limit", 0, "Default number of search results")
	flags.Duration("lock-timeout", 0, "How long to wait for another process to release the data directory")
}
