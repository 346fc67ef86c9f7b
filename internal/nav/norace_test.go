//go:build !race

package nav_test

const raceEnabled = false
