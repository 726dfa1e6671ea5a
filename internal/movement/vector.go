package movement

import "github.com/go-gl/mathgl/mgl64"

// north is the local forward axis at heading 0.
var north = mgl64.Vec2{0, 1}

// rotate turns the forward axis counter-clockwise by heading and scales it.
func rotate(heading, length float64) mgl64.Vec2 {
	return mgl64.Rotate2D(heading).Mul2x1(north).Mul(length)
}

// forward returns the east/north displacement in metres for travelling
// distance along heading.
func forward(heading, distance float64) (east, north float64) {
	v := rotate(heading, distance)
	return v.X(), v.Y()
}
