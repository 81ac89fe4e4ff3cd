// Package deepfilter wraps the deep-filter noise-suppression tool. The tool
// operates on one fixed-format audio window at a time; initialization is
// expensive and handles are meant to be cached process-wide.
package deepfilter
