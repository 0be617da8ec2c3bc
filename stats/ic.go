package stats

import "math"

// InformationCriteria holds the likelihood-based criteria of one fitted model.
type InformationCriteria struct {
	AIC    float64
	AICc   float64
	BIC    float64
	LogLik float64
}

// CalculateIC calculates AIC, AICc and BIC.
// logLik is the log-likelihood, nObs the number of observations used by the
// likelihood and nParams the number of estimated parameters including the
// innovation variance.
func CalculateIC(logLik float64, nObs int, nParams int) *InformationCriteria {
	k := float64(nParams)
	n := float64(nObs)

	aic := -2*logLik + 2*k
	return &InformationCriteria{
		AIC:    aic,
		AICc:   AICc(aic, nObs, nParams),
		BIC:    -2*logLik + k*math.Log(n),
		LogLik: logLik,
	}
}

// AICc calculates the corrected Akaike Information Criterion,
// AIC + 2k(k+1)/(n-k-1). Returns +Inf when n-k-1 <= 0.
func AICc(aic float64, nObs int, nParams int) float64 {
	k := float64(nParams)
	n := float64(nObs)

	if n-k-1 <= 0 {
		return math.Inf(1)
	}
	return aic + 2*k*(k+1)/(n-k-1)
}

// Finite reports whether every criterion except AICc is a finite number.
func (ic *InformationCriteria) Finite() bool {
	for _, v := range []float64{ic.AIC, ic.BIC, ic.LogLik} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
