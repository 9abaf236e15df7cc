// Package modea is the first concrete domain on top of package chain: a
// versioned character with hit points, spells and encounters.
package modea
