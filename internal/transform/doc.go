// Package transform reshapes flat crash records into graph import tables.
// A Transformer splits each record into Person, Crash, Location and DateTime
// node rows, derives the composite Location and DateTime keys, deduplicates
// node tables on their key (first occurrence wins, input order kept) and
// emits the INVOLVED_IN, OCCURRED_AT and HAPPENED_AT relationship tables as
// unique key pairs. Sinks consume the resulting Tables.
package transform
