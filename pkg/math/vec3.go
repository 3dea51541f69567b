package math

import "math"

// Vec3 is a vertex position in the single precision used by GPU buffers.
type Vec3 struct {
	X, Y, Z float32
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// XY drops the z component.
func (v Vec3) XY() Vec2 {
	return Vec2{float64(v.X), float64(v.Y)}
}

// Array returns the components as a fixed array for vertex structs.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}
