package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (E100-E199)
	"E100": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration file",
		Suggestion: "Check that livedev.json is valid JSON",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid port",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "Invalid transport",
		Suggestion: `Use "websocket" or "poll"`,
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
	},
	"E105": {
		Category:   CategoryConfig,
		Message:    "Root directory not found",
		Suggestion: "Pass an existing directory as the first argument",
	},
	"E106": {
		Category:   CategoryConfig,
		Message:    "Invalid watch rule",
		Suggestion: `Rules are written as PATTERN or PATTERN=COMMAND, e.g. "src/**/*.js=npm run build"`,
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Invalid stderr limit",
	},

	// Watch (E200-E299)
	"E200": {
		Category:   CategoryWatch,
		Message:    "Invalid watch pattern",
		Suggestion: "Check the glob syntax; supported wildcards are *, **, ?, [...] and {a,b}",
	},
	"E201": {
		Category:   CategoryWatch,
		Message:    "Watch pattern has no wildcard",
		Suggestion: `Use a glob such as "src/**/*.js"`,
	},
	"E202": {
		Category:   CategoryWatch,
		Message:    "Watch base directory not found",
		Suggestion: "Create the directory or fix the pattern prefix",
	},
	"E203": {
		Category: CategoryWatch,
		Message:  "Failed to start file watcher",
	},

	// Build (E300-E399)
	"E300": {
		Category: CategoryBuild,
		Message:  "Build command failed to start",
	},

	// Serve (E400-E499)
	"E400": {
		Category:   CategoryServe,
		Message:    "Failed to listen",
		Suggestion: "Set DEV_SERVER_PORT or --port to a free port",
	},
}
