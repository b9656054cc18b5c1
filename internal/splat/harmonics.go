package splat

// MaxSHDegree is the highest spherical harmonics degree a cloud may carry.
const MaxSHDegree = 3

// MaxSHCoefficients is the number of f_rest columns a degree 3 cloud carries
// (15 coefficients for each of 3 colour channels).
const MaxSHCoefficients = 45

// DimForDegree maps an SH degree to the number of coefficients per colour
// channel. Unsupported degrees map to 0.
func DimForDegree(degree int) int {
	switch degree {
	case 1:
		return 3
	case 2:
		return 8
	case 3:
		return 15
	default:
		return 0
	}
}

// DegreeForDim maps a coefficient count per channel to the highest degree it
// can fully populate. Counts between table entries round down, so callers
// must drop the surplus coefficients themselves.
func DegreeForDim(dim int) int {
	switch {
	case dim < 3:
		return 0
	case dim < 8:
		return 1
	case dim < 15:
		return 2
	default:
		return 3
	}
}
