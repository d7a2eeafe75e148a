package sh

import (
	"math"
)

// AssociatedLegendre evaluates the associated Legendre function P_l^m(x)
// for 0 <= m <= l and |x| <= 1, including the Condon-Shortley phase
// (-1)^m. It returns 0 when m > l and NaN for arguments outside [-1, 1].
func AssociatedLegendre(l, m int, x float64) float64 {
	if m < 0 || l < 0 || math.Abs(x) > 1 {
		return math.NaN()
	}
	if m > l {
		return 0
	}

	// P_m^m = (-1)^m (2m-1)!! (1-x²)^{m/2}
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for i := 1; i <= m; i++ {
			pmm *= -fact * somx2
			fact += 2
		}
	}
	if l == m {
		return pmm
	}

	pmmp1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmmp1
	}

	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (x*float64(2*ll-1)*pmmp1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm, pmmp1 = pmmp1, pll
	}
	return pll
}

// Factorial returns n! as a float64. Values are exact up to 22!.
func Factorial(n int) float64 {
	if n < 0 {
		return math.NaN()
	}
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}
