// Package constants provides shared constants used throughout rbxproducts:
// timeouts, limits, file permissions and the defaults of the declared file.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for a single catalog API request
	DefaultHTTPTimeout = 30 * time.Second

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute

	// RateLimitCushion is added to every server-advertised wait before retrying
	RateLimitCushion = 75 * time.Millisecond

	// RateLimitRetryDelay is the wait used when the server does not say how long to back off
	RateLimitRetryDelay = 1 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants
const (
	// MaxRateLimitRetries is the maximum number of retries for rate-limited requests
	MaxRateLimitRetries = 5

	// DefaultPageSize is the page size requested when listing remote records
	DefaultPageSize = 100

	// MaxConcurrency caps how many catalog writes the executor keeps in flight
	MaxConcurrency = 8

	// HistoryLimit is the default number of runs shown by the history command
	HistoryLimit = 20
)

// Declared file defaults
const (
	// DefaultDeclaredFile is the declared catalog read when no path is given
	DefaultDeclaredFile = "products.toml"

	// DefaultGeneratedFile is the generated data file written by init's template
	DefaultGeneratedFile = "products.luau"

	// DefaultDiscountPrefix is the prefix template applied to discounted names
	DefaultDiscountPrefix = "💲{}% OFF💲"

	// DiscountPlaceholder is replaced by the discount percentage in the prefix template
	DiscountPlaceholder = "{}"

	// StarterUniverseID is the placeholder universe written by init
	StarterUniverseID = 1234
)

// Remote API constants
const (
	// DefaultAPIBaseURL is the Roblox Open Cloud API root
	DefaultAPIBaseURL = "https://apis.roblox.com"

	// APIKeyHeader carries the Open Cloud API key
	APIKeyHeader = "x-api-key"

	// APIKeyEnv is the environment variable holding the Open Cloud API key
	APIKeyEnv = "RBX_API_KEY"

	// RemoteName identifies the catalog API in errors and logs
	RemoteName = "roblox"
)

// Format constants
const (
	// TimeFormatHuman is a human-readable time format
	TimeFormatHuman = "Jan 2, 2006 at 3:04pm MST"
)
