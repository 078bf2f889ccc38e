// Package contentblock holds the static content-blocking rule table and the
// compiler that turns it into a [RuleSet] handed to the rendering engine.
//
// The rule format mirrors the WebKit content rule list shape:
//
//	[{"trigger": {"url-filter": ".*doubleclick\\.net/.*"}, "action": {"type": "block"}}]
//
// Compilation validates and encodes the table. Engines without a native rule
// list evaluate requests with [RuleSet.Match]. A [Compiler] compiles once per
// process and never makes callers wait: until a result is available, and
// forever if compilation fails, navigation proceeds unblocked.
package contentblock
