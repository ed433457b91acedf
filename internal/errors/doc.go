// Package errors provides structured, actionable error messages for livedev.
//
// Every fatal startup problem (bad glob, missing base directory, invalid
// configuration) is reported as a *LivedevError carrying a stable code, a
// short message, an optional detail and a hint on how to fix it.
//
// # Error Categories
//
//   - config: configuration file, environment and flag problems
//   - watch: watch rule and file watcher problems
//   - build: build command problems
//   - serve: HTTP server problems
//
// # Usage
//
//	err := errors.New("E201").
//	    WithDetail(`pattern "src/app.js" has no wildcard`).
//	    WithSuggestion(`Use a glob such as "src/**/*.js"`)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E201: Watch pattern has no wildcard
//	//
//	//   pattern "src/app.js" has no wildcard
//	//
//	//   Hint: Use a glob such as "src/**/*.js"
package errors
