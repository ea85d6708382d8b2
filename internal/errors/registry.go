package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryConfig,
		Message:  "No inkwell.json found",
		Detail:   "The server needs an inkwell.json configuration file in the working directory.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid inkwell.json",
		Detail:   "The configuration file exists but could not be parsed as JSON.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration field holds a value outside its accepted range.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations use Go syntax, for example \"250ms\" or \"5s\".",
	},

	// ============================================
	// Server Errors (E200-E299)
	// ============================================

	"E201": {
		Category: CategoryServer,
		Message:  "Listen failed",
		Detail:   "The server could not bind its address. Another process may hold the port.",
	},
	"E202": {
		Category: CategoryServer,
		Message:  "Server shutdown failed",
		Detail:   "The HTTP server did not drain within the shutdown window.",
	},

	// ============================================
	// Kernel Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryKernel,
		Message:  "Kernel unreachable",
		Detail:   "The websocket dial to the kernel endpoint failed.",
	},

	// ============================================
	// Snapshot Errors (E400-E499)
	// ============================================

	"E401": {
		Category: CategorySnapshot,
		Message:  "Snapshot store unavailable",
		Detail:   "The snapshot database could not be opened.",
	},
	"E402": {
		Category: CategorySnapshot,
		Message:  "Unknown snapshot backend",
		Detail:   "Supported snapshot backends are \"bolt\", \"s3\" and \"none\".",
	},
}

// Register adds a custom error template. Codes outside the reserved
// ranges are free for applications embedding the runtime.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

// GetTemplate returns the template for a code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// GetAllCodes returns every registered code.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
