// Package errors provides typed errors with categories and exit codes for
// adminmux.
//
// # Error Types
//
// GatewayError wraps an error with an exit code and a category:
//
//	type GatewayError struct {
//	    Code     int      // Exit code
//	    Category Category // How the main loop reacts
//	    Message  string   // User-facing message
//	    Cause    error    // Wrapped error
//	}
//
// # Categories
//
//	CategoryTransport   // socket failure on a client or backend connection
//	CategoryAuth        // rejected credentials, at the gateway or a backend
//	CategoryAnomaly     // structured payload kind nobody consumes
//	CategoryCommand     // failure while interpreting a shell command
//	CategoryNegotiation // terminal too small or unresponsive
//	CategoryConfig      // configuration file or flag problems
//	CategoryListen      // the listening socket could not be opened
//
// None of the session-level categories is fatal: the gateway logs them to
// the affected session and keeps running.
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
