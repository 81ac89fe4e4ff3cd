// Package telemetry appends one CSV row per processing attempt to an
// append-only usage log. The file carries a UTF-8 byte-order marker and a
// single header row so it opens cleanly in spreadsheet tools.
package telemetry
