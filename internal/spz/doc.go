// Package spz packs Gaussian splat clouds into the SPZ v2 container.
//
// The write path is Pack (quantize each attribute channel), Serialize (16
// byte header plus attribute blocks) and a Compressor (gzip). Deserialize,
// Unpack and Decompress form the matching read path.
//
// Block order inside a container is positions, alphas, colors, scales,
// rotations, sh. Per point widths are 9, 1, 3, 3, 3 and 3*dim bytes where dim
// is 0, 3, 8 or 15 for SH degrees 0 to 3.
package spz
