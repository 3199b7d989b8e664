// Package version contains the dohrollout version.
package version

// Version is the dohrollout version.
const Version = "0.1.0-alpha"
