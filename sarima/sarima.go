// Package sarima implements Seasonal ARIMA (SARIMA) models.
package sarima

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sartorproj/paxarima/stats"
	"github.com/sartorproj/paxarima/timeseries"
)

// Model represents a SARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64 // Non-seasonal AR coefficients
	MACoeffs  []float64 // Non-seasonal MA coefficients
	SARCoeffs []float64 // Seasonal AR coefficients
	SMACoeffs []float64 // Seasonal MA coefficients
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC for small sample sizes
	BIC       float64
	LogLik    float64
	NObs      int // observations entering the conditional likelihood

	// Condition is the number of leading observations of the undifferenced
	// series the likelihood conditions on. It is raised to the order's own
	// Order.Conditioning when smaller. Models fitted with the same Condition
	// are scored on the same observations, so their criteria compare.
	Condition int

	fitted    bool
	data      *timeseries.Series
	diffData  *timeseries.Series
	levels    []*timeseries.Series // levels[k] is the input of differencing stage k
	lags      []int
	startIdx  int
	residuals []float64
}

// New creates a new SARIMA model with the specified order.
func New(p, d, q, sp, sd, sq, m int) *Model {
	return NewFromOrder(Order{
		P: p, D: d, Q: q,
		SP: sp, SD: sd, SQ: sq, M: m,
	})
}

// NewFromOrder creates a new SARIMA model for o.
func NewFromOrder(o Order) *Model {
	return &Model{
		Order:     o,
		ARCoeffs:  make([]float64, o.P),
		MACoeffs:  make([]float64, o.Q),
		SARCoeffs: make([]float64, o.SP),
		SMACoeffs: make([]float64, o.SQ),
	}
}

// Fit fits the SARIMA model to the given time series data.
// A series shorter than Order.MinObservations yields *timeseries.InsufficientDataError;
// a fit with a non-finite or zero residual variance yields ErrNotConverged.
func (m *Model) Fit(series *timeseries.Series) error {
	if err := m.Order.Validate(); err != nil {
		return err
	}
	cond := max(m.Condition, m.Order.Conditioning())
	need := max(m.Order.MinObservations(), cond+m.Order.NumParams()+minResiduals)
	if err := timeseries.RequireLen(series, "sarima fit "+m.Order.String(), need); err != nil {
		return err
	}

	m.data = series
	m.levels = m.levels[:0]
	m.lags = m.lags[:0]

	diffSeries := series
	for i := 0; i < m.Order.D; i++ {
		m.levels = append(m.levels, diffSeries)
		m.lags = append(m.lags, 1)
		diffSeries = diffSeries.Diff()
	}
	for i := 0; i < m.Order.SD; i++ {
		m.levels = append(m.levels, diffSeries)
		m.lags = append(m.lags, m.Order.M)
		diffSeries = diffSeries.SeasonalDiff(m.Order.M)
	}
	if diffSeries.Len() == 0 {
		return errors.New("differencing resulted in empty series")
	}

	m.diffData = diffSeries

	// Residual t of the differenced series is the one-step error of
	// observation t+D+SD*M of the original one.
	if err := m.fitCSS(cond - m.Order.D - m.Order.SD*m.Order.M); err != nil {
		return err
	}

	ic := stats.CalculateIC(m.LogLik, m.NObs, m.Order.NumParams()+1)
	if !ic.Finite() {
		return ErrNotConverged
	}
	m.AIC, m.AICc, m.BIC = ic.AIC, ic.AICc, ic.BIC

	m.fitted = true
	return nil
}

// fitCSS fits the model using Conditional Sum of Squares estimation.
func (m *Model) fitCSS(start int) error {
	y := m.diffData.Values
	p := m.Order.P
	sp := m.Order.SP
	period := m.Order.M

	m.Intercept = m.diffData.Mean()

	if p > 0 {
		if acf := stats.ACF(m.diffData, p); acf != nil {
			m.ARCoeffs = initARCoeffs(acf, p)
		}
	}
	if sp > 0 {
		if acf := stats.ACF(m.diffData, sp*period); acf != nil {
			for i := 0; i < sp; i++ {
				idx := (i + 1) * period
				if idx < len(acf) {
					m.SARCoeffs[i] = acf[idx] * 0.5
				}
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}
	for i := range m.SMACoeffs {
		m.SMACoeffs[i] = 0.1
	}

	return m.optimizeCSS(y, start)
}

// residualsInto evaluates one-step prediction errors of y under the current
// coefficients. It returns the sum of squares from start onward.
func (m *Model) residualsInto(y, residuals []float64, start int) float64 {
	p, q := m.Order.P, m.Order.Q
	sp, sq := m.Order.SP, m.Order.SQ
	period := m.Order.M

	sse := 0.0
	for t := range y {
		pred := m.Intercept

		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
		}
		for i := 0; i < sp; i++ {
			lag := (i + 1) * period
			if t-lag >= 0 {
				pred += m.SARCoeffs[i] * (y[t-lag] - m.Intercept)
			}
		}
		for i := 0; i < q && t-i-1 >= 0; i++ {
			pred += m.MACoeffs[i] * residuals[t-i-1]
		}
		for i := 0; i < sq; i++ {
			lag := (i + 1) * period
			if t-lag >= 0 {
				pred += m.SMACoeffs[i] * residuals[t-lag]
			}
		}

		residuals[t] = y[t] - pred
		if t >= start {
			sse += residuals[t] * residuals[t]
		}
	}
	return sse
}

// optimizeCSS optimizes SARIMA parameters with adaptive learning and momentum,
// summing squared residuals from startIdx on. MA terms before the sample are
// zero. Gradients are normalized by the centered sum of squares of y so step
// sizes do not depend on the magnitude of the data.
func (m *Model) optimizeCSS(y []float64, startIdx int) error {
	n := len(y)
	p := m.Order.P
	q := m.Order.Q
	sp := m.Order.SP
	sq := m.Order.SQ
	period := m.Order.M

	maxIter := 200
	tolerance := 1e-10
	learningRate := 0.005
	momentum := 0.9
	decay := 0.99

	scale := 0.0
	for _, v := range y {
		scale += (v - m.Intercept) * (v - m.Intercept)
	}
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return ErrNotConverged
	}

	arMomentum := make([]float64, p)
	maMomentum := make([]float64, q)
	sarMomentum := make([]float64, sp)
	smaMomentum := make([]float64, sq)

	m.startIdx = startIdx

	bestSSE := math.Inf(1)
	bestARCoeffs := make([]float64, p)
	bestMACoeffs := make([]float64, q)
	bestSARCoeffs := make([]float64, sp)
	bestSMACoeffs := make([]float64, sq)
	noImproveCount := 0
	prevSSE := math.Inf(1)

	residuals := make([]float64, n)
	arGrad := make([]float64, p)
	maGrad := make([]float64, q)
	sarGrad := make([]float64, sp)
	smaGrad := make([]float64, sq)

	for iter := 0; iter < maxIter; iter++ {
		currentSSE := m.residualsInto(y, residuals, startIdx)
		if math.IsNaN(currentSSE) || math.IsInf(currentSSE, 0) {
			break
		}

		if currentSSE < bestSSE {
			bestSSE = currentSSE
			copy(bestARCoeffs, m.ARCoeffs)
			copy(bestMACoeffs, m.MACoeffs)
			copy(bestSARCoeffs, m.SARCoeffs)
			copy(bestSMACoeffs, m.SMACoeffs)
			noImproveCount = 0
		} else {
			noImproveCount++
		}

		if noImproveCount > 20 {
			break
		}
		if math.Abs(prevSSE-currentSSE) <= tolerance*currentSSE {
			break
		}
		prevSSE = currentSSE

		clear(arGrad)
		clear(maGrad)
		clear(sarGrad)
		clear(smaGrad)

		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < sp; i++ {
				lag := (i + 1) * period
				if t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.Intercept)
				}
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < sq; i++ {
				lag := (i + 1) * period
				if t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		step := func(coeffs, grad, vel []float64) {
			for i := range coeffs {
				vel[i] = momentum*vel[i] + learningRate*grad[i]/scale
				coeffs[i] = clamp(coeffs[i]-vel[i], -0.99, 0.99)
			}
		}
		step(m.ARCoeffs, arGrad, arMomentum)
		step(m.SARCoeffs, sarGrad, sarMomentum)
		step(m.MACoeffs, maGrad, maMomentum)
		step(m.SMACoeffs, smaGrad, smaMomentum)

		learningRate *= decay
	}

	if math.IsInf(bestSSE, 1) {
		return ErrNotConverged
	}

	copy(m.ARCoeffs, bestARCoeffs)
	copy(m.MACoeffs, bestMACoeffs)
	copy(m.SARCoeffs, bestSARCoeffs)
	copy(m.SMACoeffs, bestSMACoeffs)

	m.residuals = make([]float64, n)
	sse := m.residualsInto(y, m.residuals, startIdx)

	count := n - startIdx
	numParams := p + q + sp + sq + 1
	if count > numParams {
		m.Variance = sse / float64(count-numParams)
	} else {
		m.Variance = sse / float64(count)
	}
	if !(m.Variance > 0) || math.IsInf(m.Variance, 0) {
		return ErrNotConverged
	}

	// Conditional Gaussian log-likelihood at the ML variance estimate
	sigma2 := sse / float64(count)
	m.NObs = count
	m.LogLik = -float64(count) / 2 * (math.Log(2*math.Pi*sigma2) + 1)

	return nil
}

// PredictWithInterval generates forecasts with prediction intervals.
// Returns point forecasts, lower bounds, and upper bounds at the given
// confidence level on the scale of the fitted series. The forecast variance
// at horizon h is Variance * sum(psi_j^2, j < h), with psi the MA(inf)
// weights of the model including its differencing operators.
func (m *Model) PredictWithInterval(steps int, confidence float64) (forecasts, lower, upper []float64, err error) {
	if !m.fitted {
		return nil, nil, nil, ErrNotFitted
	}
	if steps < 1 {
		return nil, nil, nil, errors.New("steps must be at least 1")
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	p := m.Order.P
	q := m.Order.Q
	sp := m.Order.SP
	sq := m.Order.SQ
	period := m.Order.M

	y := m.diffData.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)

	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept

		for i := 0; i < p && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (extY[t-i-1] - m.Intercept)
		}
		for i := 0; i < sp; i++ {
			lag := (i + 1) * period
			if t-lag >= 0 {
				pred += m.SARCoeffs[i] * (extY[t-lag] - m.Intercept)
			}
		}
		// Future innovations have expectation zero
		for i := 0; i < q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.MACoeffs[i] * extResiduals[t-i-1]
		}
		for i := 0; i < sq; i++ {
			lag := (i + 1) * period
			if t-lag >= 0 && t-lag < n {
				pred += m.SMACoeffs[i] * extResiduals[t-lag]
			}
		}

		extY[t] = pred
	}

	forecasts, err = m.integrate(extY[n:])
	if err != nil {
		return nil, nil, nil, err
	}

	z := distuv.UnitNormal.Quantile((1 + confidence) / 2)
	psi := m.PsiWeights(steps)

	lower = make([]float64, steps)
	upper = make([]float64, steps)
	cum := 0.0
	for h := 0; h < steps; h++ {
		cum += psi[h] * psi[h]
		se := math.Sqrt(m.Variance * cum)
		lower[h] = forecasts[h] - z*se
		upper[h] = forecasts[h] + z*se
	}

	return forecasts, lower, upper, nil
}

// integrate undoes the differencing stages of Fit in reverse order.
func (m *Model) integrate(diffForecasts []float64) ([]float64, error) {
	result := make([]float64, len(diffForecasts))
	copy(result, diffForecasts)

	for k := len(m.lags) - 1; k >= 0; k-- {
		var err error
		result, err = timeseries.Integrate(result, m.levels[k].Values, m.lags[k])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// PsiWeights returns the first n MA(inf) weights of the fitted model,
// psi_0 = 1, including the (1-B)^d (1-B^m)^D differencing operators.
func (m *Model) PsiWeights(n int) []float64 {
	period := m.Order.M

	ar := []float64{1}
	for i, c := range m.ARCoeffs {
		ar = addTerm(ar, i+1, -c)
	}
	for i, c := range m.SARCoeffs {
		ar = addTerm(ar, (i+1)*period, -c)
	}
	for i := 0; i < m.Order.D; i++ {
		ar = polyMul(ar, []float64{1, -1})
	}
	for i := 0; i < m.Order.SD; i++ {
		seasonal := make([]float64, period+1)
		seasonal[0], seasonal[period] = 1, -1
		ar = polyMul(ar, seasonal)
	}

	ma := []float64{1}
	for i, c := range m.MACoeffs {
		ma = addTerm(ma, i+1, c)
	}
	for i, c := range m.SMACoeffs {
		ma = addTerm(ma, (i+1)*period, c)
	}

	psi := make([]float64, n)
	for j := 0; j < n; j++ {
		if j < len(ma) {
			psi[j] = ma[j]
		}
		for i := 1; i <= j && i < len(ar); i++ {
			psi[j] -= ar[i] * psi[j-i]
		}
	}
	return psi
}

func addTerm(poly []float64, power int, coeff float64) []float64 {
	for len(poly) <= power {
		poly = append(poly, 0)
	}
	poly[power] += coeff
	return poly
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// Residuals returns the residuals entering the conditional likelihood.
func (m *Model) Residuals() []float64 {
	if !m.fitted {
		return nil
	}
	result := make([]float64, len(m.residuals)-m.startIdx)
	copy(result, m.residuals[m.startIdx:])
	return result
}

// Summary represents a model summary.
type Summary struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	AIC       float64
	AICc      float64 // Corrected AIC
	BIC       float64
	LogLik    float64
	NObs      int
	LjungBox  *stats.LjungBoxResult
}

// Summary returns a summary of the fitted model with a Ljung-Box test of
// the residuals up to lags.
func (m *Model) Summary(lags int) *Summary {
	if !m.fitted {
		return nil
	}

	resid := timeseries.New(m.Residuals())
	lb := stats.LjungBox(resid, lags, m.Order.NumParams())

	return &Summary{
		Order:     m.Order,
		ARCoeffs:  m.ARCoeffs,
		MACoeffs:  m.MACoeffs,
		SARCoeffs: m.SARCoeffs,
		SMACoeffs: m.SMACoeffs,
		Intercept: m.Intercept,
		Variance:  m.Variance,
		AIC:       m.AIC,
		AICc:      m.AICc,
		BIC:       m.BIC,
		LogLik:    m.LogLik,
		NObs:      m.NObs,
		LjungBox:  lb,
	}
}

// initARCoeffs initializes AR coefficients from ACF.
func initARCoeffs(acf []float64, order int) []float64 {
	coeffs := make([]float64, order)
	for i := 0; i < order && i+1 < len(acf); i++ {
		coeffs[i] = acf[i+1] * 0.5
	}
	return coeffs
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}
