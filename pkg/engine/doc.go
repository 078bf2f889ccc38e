// Package engine defines the contract between the browser core and the
// external rendering engine. A [Handle] is one engine-side browsing context
// (one per tab). Navigation requests carry an [Attempt] id which the engine
// echoes on every [Event] it raises for that navigation, so late callbacks of
// superseded navigations can be recognised and dropped.
//
// Handles deliver events through [EventBus] listeners on arbitrary
// goroutines. Consumers must not mutate shared state from a listener; they
// post the event onto their owner context instead.
package engine
