package stats

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/paxarima/timeseries"
)

// ADFResult represents the result of an Augmented Dickey-Fuller test.
type ADFResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	NObs         int
	CriticalVals map[string]float64 // Critical values at 1%, 5%, 10%
	IsStationary bool               // p < 0.05
}

// ADF performs the Augmented Dickey-Fuller test for unit root with a constant.
// The null hypothesis is that the series has a unit root (is non-stationary).
// maxLag <= 0 selects floor((n-1)^(1/3)) lagged differences.
func ADF(series *timeseries.Series, maxLag int) *ADFResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := series.Diff()

	// delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i}) + e_t
	nObs := n - maxLag - 1
	if nObs < 10 {
		return nil
	}

	y := make([]float64, nObs)
	x := make([][]float64, nObs)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y[i] = diff.Values[t]

		x[i] = make([]float64, 2+maxLag)
		x[i][0] = 1
		x[i][1] = series.Values[t]
		for j := 1; j <= maxLag; j++ {
			x[i][1+j] = diff.Values[t-j]
		}
	}

	coeffs, se := olsRegression(x, y)
	if len(coeffs) < 2 || len(se) < 2 || se[1] == 0 {
		return nil
	}

	tStat := coeffs[1] / se[1]
	pValue := MacKinnonPValue(tStat)

	return &ADFResult{
		Statistic: tStat,
		PValue:    pValue,
		Lags:      maxLag,
		NObs:      nObs,
		CriticalVals: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsStationary: pValue < 0.05,
	}
}

// KPSSResult represents the result of a KPSS test.
type KPSSResult struct {
	Statistic    float64
	PValue       float64
	Lags         int
	CriticalVals map[string]float64
	IsStationary bool // p >= 0.05
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test for level
// ("c") or trend ("ct") stationarity. The null hypothesis is stationarity.
func KPSS(series *timeseries.Series, regression string, nlags int) *KPSSResult {
	n := series.Len()
	if n < 10 {
		return nil
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}
	if nlags >= n {
		nlags = n - 1
	}

	residuals := make([]float64, n)
	if regression == "ct" {
		x := make([][]float64, n)
		for i := range x {
			x[i] = []float64{1, float64(i)}
		}
		coeffs, _ := olsRegression(x, series.Values)
		if coeffs == nil {
			return nil
		}
		for i, v := range series.Values {
			residuals[i] = v - coeffs[0] - coeffs[1]*float64(i)
		}
	} else {
		mean := series.Mean()
		for i, v := range series.Values {
			residuals[i] = v - mean
		}
	}

	// Newey-West long-run variance with Bartlett weights
	s2 := 0.0
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)
	for l := 1; l <= nlags; l++ {
		cov := 0.0
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		s2 += 2 * (1.0 - float64(l)/float64(nlags+1)) * cov
	}
	if s2 <= 0 {
		return nil
	}

	etaSq, cum := 0.0, 0.0
	for _, r := range residuals {
		cum += r
		etaSq += cum * cum
	}
	stat := etaSq / (float64(n) * float64(n) * s2)

	criticalVals := map[string]float64{"10%": 0.347, "5%": 0.463, "1%": 0.739}
	if regression == "ct" {
		criticalVals = map[string]float64{"10%": 0.119, "5%": 0.146, "1%": 0.216}
	}

	pValue := kpssPValue(stat, regression)
	return &KPSSResult{
		Statistic:    stat,
		PValue:       pValue,
		Lags:         nlags,
		CriticalVals: criticalVals,
		IsStationary: pValue >= 0.05,
	}
}

// olsRegression performs ordinary least squares regression.
// Returns coefficients and their standard errors, or nils for a singular design.
func olsRegression(x [][]float64, y []float64) (coeffs, stdErrors []float64) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, nil
	}
	k := len(x[0])

	design := mat.NewDense(n, k, nil)
	for i, row := range x {
		design.SetRow(i, row)
	}
	target := mat.NewVecDense(n, y)

	var xtx, xtxInv mat.Dense
	xtx.Mul(design.T(), design)
	if err := xtxInv.Inverse(&xtx); err != nil {
		if c, ok := err.(mat.Condition); !ok || math.IsInf(float64(c), 1) {
			return nil, nil
		}
	}

	var xty, beta, fitted, resid mat.VecDense
	xty.MulVec(design.T(), target)
	beta.MulVec(&xtxInv, &xty)
	fitted.MulVec(design, &beta)
	resid.SubVec(target, &fitted)

	coeffs = make([]float64, k)
	for i := range coeffs {
		coeffs[i] = beta.AtVec(i)
	}
	if n <= k {
		return coeffs, nil
	}

	s2 := mat.Dot(&resid, &resid) / float64(n-k)
	stdErrors = make([]float64, k)
	for i := range stdErrors {
		stdErrors[i] = math.Sqrt(s2 * xtxInv.At(i, i))
	}
	return coeffs, stdErrors
}

// MacKinnon (1994) response-surface coefficients for the constant-only
// Dickey-Fuller distribution with one integrated variable.
var (
	mackinnonSmallP = [3]float64{2.1659, 1.4412, 0.038269}
	mackinnonLargeP = [4]float64{1.7339, 0.93202, -0.12745, -0.010368}
)

const (
	mackinnonTauMax  = 2.74
	mackinnonTauMin  = -18.83
	mackinnonTauStar = -1.61
)

// MacKinnonPValue returns the approximate p-value of an ADF t-statistic
// for a regression with a constant.
func MacKinnonPValue(stat float64) float64 {
	switch {
	case stat > mackinnonTauMax:
		return 1
	case stat < mackinnonTauMin:
		return 0
	}

	var z float64
	if stat <= mackinnonTauStar {
		z = polyval(mackinnonSmallP[:], stat)
	} else {
		z = polyval(mackinnonLargeP[:], stat)
	}
	return distuv.UnitNormal.CDF(z)
}

// polyval evaluates c[0] + c[1]x + c[2]x^2 + ...
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}

// kpssPValue interpolates the KPSS p-value from the published critical values.
// Values are clamped to [0.01, 0.10] as in the tables.
func kpssPValue(stat float64, regression string) float64 {
	crit := []float64{0.347, 0.463, 0.574, 0.739}
	if regression == "ct" {
		crit = []float64{0.119, 0.146, 0.176, 0.216}
	}
	pvals := []float64{0.10, 0.05, 0.025, 0.01}

	switch {
	case stat <= crit[0]:
		return pvals[0]
	case stat >= crit[len(crit)-1]:
		return pvals[len(pvals)-1]
	}
	for i := 1; i < len(crit); i++ {
		if stat <= crit[i] {
			frac := (stat - crit[i-1]) / (crit[i] - crit[i-1])
			return pvals[i-1] + frac*(pvals[i]-pvals[i-1])
		}
	}
	return pvals[len(pvals)-1]
}
