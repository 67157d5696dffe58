package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// Duomo di Milano to Castello Sforzesco, roughly 1.1km.
	d := HaversineDistance(45.4642, 9.1900, 45.4705, 9.1794)
	assert.InDelta(t, 1100, d, 150)

	assert.Zero(t, HaversineDistance(45.0, 9.0, 45.0, 9.0))
}

func TestValidateCoordinates(t *testing.T) {
	assert.True(t, ValidateCoordinates(45.46, 9.19))
	assert.True(t, ValidateCoordinates(-90, 180))

	assert.False(t, ValidateCoordinates(90.1, 0))
	assert.False(t, ValidateCoordinates(0, -180.1))
}
