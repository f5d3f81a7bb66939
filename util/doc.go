// Package util holds small string and pointer helpers shared across packages.
package util
