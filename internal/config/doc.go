// Package config provides configuration for the livedev server.
//
// Settings come from, in increasing precedence: built-in defaults, an
// optional livedev.json in the served directory (or a file passed with
// --config), the DEV_SERVER_ADDRESS and DEV_SERVER_PORT environment
// variables, and command-line flags.
//
// # Configuration File Structure
//
//	{
//	  "host": "localhost",
//	  "port": 3000,
//	  "pushState": false,
//	  "transport": "websocket",
//	  "stderrIsFailure": true,
//	  "stderrLimit": 1048576,
//	  "poll": false,
//	  "pollInterval": "250ms",
//	  "reconnectDelay": "2.5s",
//	  "metrics": true,
//	  "open": false,
//	  "ignore": [".git", "node_modules"],
//	  "rules": [
//	    {"pattern": "src/**/*.js", "command": "npm run build"},
//	    {"pattern": "styles/*.css"}
//	  ]
//	}
//
// Rule patterns in the file are resolved against the file's directory;
// rules given on the command line are resolved against the working
// directory. Commands run in the directory their pattern was resolved
// against.
//
// # Usage
//
//	cfg, err := config.Load(root)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(os.Getenv); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//
//	rules, _ := cfg.WatchRules()
package config
