// Package build runs the command attached to a watch rule when one of its
// files changes and turns the outcome into a reload result.
//
// Commands run through the user's shell ($SHELL -c on Unix, %ComSpec% /C on
// Windows) with the changed path in the FILE environment variable and the
// rule's directory as the working directory. Standard output is mirrored to
// the runner's output; standard error is mirrored too unless the rule is
// silent, and is always captured up to a fixed limit.
//
// # Classification
//
//	exit 0, no stderr           -> reload.Update{Path}
//	exit 0, stderr              -> reload.Failure{stderr} (unless AllowStderr)
//	exit != 0                   -> reload.Failure{stderr}
//	command could not start     -> reload.Failure{error}, even for silent rules
//	rule has no command         -> reload.Update{Path}, nothing is run
//
// Silent rules report nothing to browsers except start failures.
//
// # Usage
//
//	runner := build.NewRunner(build.Options{})
//	result, notify := runner.Run(ctx, rule, "/abs/path/src/app.js")
//	if notify {
//	    hub.Broadcast(ctx, result)
//	}
//
// Runs are independent. Overlapping changes start overlapping commands and
// nothing is debounced.
package build
