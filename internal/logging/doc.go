// Package logging builds the process logger from configuration.
//
// Loggers are plain *slog.Logger values carrying the default attributes
// service=hilbench and version=<build version>. Components add their own
// component=<name> attribute with With.
package logging
