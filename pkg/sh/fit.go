package sh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Fit estimates the SH coefficients that best reproduce the sampled ODF
// values under the given basis. With lambda == 0 it solves the ordinary
// least-squares problem by QR; a positive lambda adds Laplace-Beltrami
// regularization, penalizing each coefficient by lambda·l²(l+1)².
func Fit(basis *mat.Dense, samples []float64, lambda float64) ([]float64, error) {
	rows, cols := basis.Dims()
	if len(samples) != rows {
		return nil, fmt.Errorf("got %d samples for a basis with %d directions", len(samples), rows)
	}
	if lambda < 0 {
		return nil, fmt.Errorf("regularization weight must be non-negative, got %g", lambda)
	}
	order, err := OrderFor(cols)
	if err != nil {
		return nil, err
	}

	b := mat.NewVecDense(rows, samples)
	x := mat.NewVecDense(cols, nil)

	if lambda == 0 {
		if rows < cols {
			return nil, fmt.Errorf("underdetermined fit: %d directions for %d coefficients", rows, cols)
		}
		var qr mat.QR
		qr.Factorize(basis)
		if err := qr.SolveVecTo(x, false, b); err != nil {
			return nil, fmt.Errorf("least-squares solve failed: %w", err)
		}
		return x.RawVector().Data, nil
	}

	// Normal equations (BᵀB + λL²) x = Bᵀs
	normal := mat.NewSymDense(cols, nil)
	normal.SymOuterK(1, basis.T())
	for j, l := range Degrees(order) {
		lb := float64(l * (l + 1))
		normal.SetSym(j, j, normal.At(j, j)+lambda*lb*lb)
	}

	rhs := mat.NewVecDense(cols, nil)
	rhs.MulVec(basis.T(), b)

	var chol mat.Cholesky
	if ok := chol.Factorize(normal); !ok {
		return nil, fmt.Errorf("regularized normal matrix is not positive definite")
	}
	if err := chol.SolveVecTo(x, rhs); err != nil {
		return nil, fmt.Errorf("regularized solve failed: %w", err)
	}
	return x.RawVector().Data, nil
}
