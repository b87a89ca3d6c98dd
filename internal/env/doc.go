// Package env resolves the process environment of zapgen: the ZAP_*
// variables, the application state directory, build version and logging.
package env
