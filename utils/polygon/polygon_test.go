package polygon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/navstack/utils/polygon"
	"gonum.org/v1/gonum/spatial/r3"
)

func square(cx, cy, h float64) polygon.Polygon {
	return polygon.Polygon{
		{X: cx - h, Y: cy - h},
		{X: cx + h, Y: cy - h},
		{X: cx + h, Y: cy + h},
		{X: cx - h, Y: cy + h},
	}
}

func TestIntersects(t *testing.T) {
	a := square(0, 0, 1)
	assert.True(t, a.Intersects(square(1.5, 0, 1)))
	assert.True(t, a.Intersects(square(2, 0, 1)), "touching counts")
	assert.False(t, a.Intersects(square(2.5, 0, 1)))
	assert.True(t, a.Intersects(square(0, 0, 0.1)), "containment")
	assert.False(t, a.Intersects(nil))
}

func TestIntersectsRotated(t *testing.T) {
	// 菱形与正方形的角点相距很近但分离
	diamond := polygon.Polygon{{X: 3, Y: 0}, {X: 4, Y: 1}, {X: 3, Y: 2}, {X: 2, Y: 1}}
	sq := square(0, 0, 1)
	assert.False(t, sq.Intersects(diamond))
	assert.True(t, square(2, 1, 0.5).Intersects(diamond))
}

func TestDegenerate(t *testing.T) {
	seg := polygon.Polygon{{X: -5, Y: 0}, {X: 5, Y: 0}}
	assert.True(t, seg.Intersects(square(0, 0, 1)))
	assert.False(t, seg.Intersects(square(0, 3, 1)))
	pt := polygon.Polygon{{X: 0.5, Y: 0.5}}
	assert.True(t, pt.Intersects(square(0, 0, 1)))
	assert.False(t, pt.Intersects(square(3, 3, 1)))
}

func TestConvexHull(t *testing.T) {
	hull := polygon.ConvexHull([]r3.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}, {X: 1, Y: 0.2}, {X: 1, Y: -1}})
	assert.Len(t, hull, 4)
	assert.NotContains(t, hull, r3.Vec{X: 1, Y: 0.2})
}

func TestCorridor(t *testing.T) {
	// 沿x轴的直走廊，宽2
	left := []r3.Vec{{X: 0, Y: -1}, {X: 5, Y: -1}, {X: 10, Y: -1}}
	right := []r3.Vec{{X: 0, Y: 1}, {X: 5, Y: 1}, {X: 10, Y: 1}}
	c := polygon.NewCorridor(left, right)
	assert.Len(t, c, 2)
	assert.True(t, c.Intersects(square(8, 0, 0.5)))
	assert.True(t, c.Intersects(square(8, 1.4, 0.5)))
	assert.False(t, c.Intersects(square(8, 3, 0.5)))
	assert.False(t, c.Intersects(square(12, 0, 0.5)))

	assert.Nil(t, polygon.NewCorridor(left[:1], right[:1]))
}
