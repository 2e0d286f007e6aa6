// Package observability records ptrack's domain events in a JSON Lines log,
// derives activity metrics from that log on demand, and evaluates due-date
// and running-time alerts over the project collection.
package observability
