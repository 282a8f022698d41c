// Package main implements the trace tail CLI: it attaches to one trace's
// live event stream on a collector and prints events as they arrive.
//
// Usage:
//
//	tail -addr localhost:8000 trc_01HX...
package main
