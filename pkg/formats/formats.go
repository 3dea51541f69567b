// Package formats provides binary encodings for meshkit files.
//
// MGRD (mesh grid document) layout, little-endian:
//
//	magic "MGRD" | minor u8 | major u8 | id [16]byte
//	width u32 | height u32 | subdivisions u32
//	name length u16 | name bytes
//	width*height nodes, row-major:
//	  point [2]i32 | location [2]f64 | color [4]f32 | tangent [2]f32
package formats
