package palette

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRGBA(t *testing.T) {
	c, err := RGBA("#ffbf00")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 191, B: 0}, c)

	_, err = RGBA("amber")
	assert.Error(t, err)
}

func TestOpaque(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 80, G: 80, B: 80, A: 255}, Opaque(CellEmpty))
}

func TestMustRGBAPanics(t *testing.T) {
	assert.Panics(t, func() { MustRGBA("#12") })
}
