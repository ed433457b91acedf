// Package watch turns filesystem activity into change notifications for
// glob-scoped watch rules.
//
// A Rule pairs a doublestar glob (e.g. "src/**/*.js") with an optional shell
// command. The literal prefix of the glob, up to the first wildcard segment, is
// the rule's base directory; the Watcher recursively watches every base
// directory and reports each created, written or renamed file as a Change.
//
// The Watcher does not interpret globs. Callers must re-check every Change with
// Rule.Match before acting on it, since a single base directory may be shared
// by several rules and editors produce events for temporary files.
//
// Two backends are available: native notifications through fsnotify (the
// default) and an mtime-scanning poller for filesystems where notifications
// are unavailable (network mounts, some container volumes).
package watch
