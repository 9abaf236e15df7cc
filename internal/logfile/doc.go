// Package logfile runs chain operations against log files on disk.
//
// A process must own a log file exclusively for the duration of a
// read-modify-append cycle; nothing here locks against other writers.
package logfile
