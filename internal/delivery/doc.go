// Package delivery emails completed syntheses to meeting participants and
// records the outcome on the synthesis row.
package delivery
