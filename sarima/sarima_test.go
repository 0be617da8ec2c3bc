package sarima

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/sartorproj/paxarima/timeseries"
)

// passengerSeries generates monthly traffic with trend, yearly seasonality and noise.
func passengerSeries(n int, level float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		trend := level * (1 + 0.004*float64(i))
		seasonal := 0.2 * level * math.Sin(2*math.Pi*float64(i)/12)
		values[i] = trend + seasonal + 0.02*level*rng.NormFloat64()
	}
	return values
}

func TestNewSARIMA(t *testing.T) {
	model := New(1, 1, 1, 1, 1, 1, 12)

	want := Order{P: 1, D: 1, Q: 1, SP: 1, SD: 1, SQ: 1, M: 12}
	if model.Order != want {
		t.Errorf("Expected order %v, got %v", want, model.Order)
	}
	if len(model.ARCoeffs) != 1 || len(model.SMACoeffs) != 1 {
		t.Error("Coefficient slices should match the order")
	}
}

func TestOrderString(t *testing.T) {
	o := Order{P: 2, D: 1, Q: 0, SP: 0, SD: 1, SQ: 1, M: 12}
	if o.String() != "(2,1,0)(0,1,1)[12]" {
		t.Errorf("Unexpected string %q", o.String())
	}
	if o.NumParams() != 3 {
		t.Errorf("Expected 3 ARMA parameters, got %d", o.NumParams())
	}
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("(1, 1, 2)(0, 1, 1)[12]")
	if err != nil {
		t.Fatalf("ParseOrder failed: %v", err)
	}
	if o != (Order{P: 1, D: 1, Q: 2, SD: 1, SQ: 1, M: 12}) {
		t.Errorf("Unexpected order %v", o)
	}

	o, err = ParseOrder("(0,1,1)(0,1,1)")
	if err != nil || o.M != 12 {
		t.Errorf("Expected default period 12, got %v (%v)", o, err)
	}

	for _, bad := range []string{"", "(1,1)(0,1,1)[12]", "(1,1,1)(0,1,1)[0]", "(-1,0,0)(0,0,0)[12]"} {
		if _, err := ParseOrder(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestSARIMAFitMonthlyData(t *testing.T) {
	series := timeseries.New(passengerSeries(120, 100, 1))
	model := New(1, 0, 0, 1, 0, 0, 12)

	if err := model.Fit(series); err != nil {
		t.Fatalf("Failed to fit SARIMA model: %v", err)
	}

	if math.IsNaN(model.AIC) || math.IsInf(model.AIC, 0) {
		t.Errorf("Expected finite AIC, got %f", model.AIC)
	}
	if model.BIC <= model.AIC {
		t.Errorf("BIC should exceed AIC for n > 7: AIC=%f BIC=%f", model.AIC, model.BIC)
	}
	if model.SARCoeffs[0] <= 0 {
		t.Errorf("Expected positive seasonal AR coefficient, got %f", model.SARCoeffs[0])
	}
	// p + P*m = 13 observations are conditioned on.
	if model.NObs != 120-13 {
		t.Errorf("Expected likelihood over %d observations, got %d", 107, model.NObs)
	}
}

func TestSARIMAWithDifferencing(t *testing.T) {
	series := timeseries.New(passengerSeries(144, 50, 2))
	model := New(1, 1, 0, 1, 1, 0, 12)

	if err := model.Fit(series); err != nil {
		t.Fatalf("Failed to fit SARIMA(1,1,0)(1,1,0)[12]: %v", err)
	}
	if model.diffData.Len() != 144-1-12 {
		t.Errorf("Expected differenced length %d, got %d", 131, model.diffData.Len())
	}
}

func TestSARIMAScaleInvariance(t *testing.T) {
	small := passengerSeries(120, 1, 3)
	large := make([]float64, len(small))
	for i, v := range small {
		large[i] = v * (1 << 20)
	}

	m1 := New(1, 0, 1, 0, 1, 1, 12)
	m2 := New(1, 0, 1, 0, 1, 1, 12)
	if err := m1.Fit(timeseries.New(small)); err != nil {
		t.Fatal(err)
	}
	if err := m2.Fit(timeseries.New(large)); err != nil {
		t.Fatal(err)
	}

	pairs := [][2]float64{
		{m1.ARCoeffs[0], m2.ARCoeffs[0]},
		{m1.MACoeffs[0], m2.MACoeffs[0]},
		{m1.SMACoeffs[0], m2.SMACoeffs[0]},
	}
	for i, p := range pairs {
		if math.Abs(p[0]-p[1]) > 1e-9 {
			t.Errorf("Coefficient %d depends on scale: %f vs %f", i, p[0], p[1])
		}
	}
}

func TestSARIMASeasonalNaiveForecast(t *testing.T) {
	values := passengerSeries(96, 1000, 4)
	model := New(0, 0, 0, 0, 1, 0, 12)

	if err := model.Fit(timeseries.New(values)); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	forecasts, _, _, err := model.PredictWithInterval(12, 0.95)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if len(forecasts) != 12 {
		t.Fatalf("Expected 12 forecasts, got %d", len(forecasts))
	}

	// With no ARMA terms the forecast is last year's value plus the mean seasonal change.
	for h, f := range forecasts {
		want := values[96-12+h] + model.Intercept
		if math.Abs(f-want) > 1e-6 {
			t.Errorf("Forecast %d: expected %f, got %f", h, want, f)
		}
	}
}

func TestSARIMASecondDifferenceIntegration(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	values := make([]float64, 60)
	for i := range values {
		x := float64(i)
		values[i] = 100 + 2*x + 0.1*x*x + rng.NormFloat64()
	}
	n := len(values)

	model := New(0, 2, 0, 0, 0, 0, 12)
	if err := model.Fit(timeseries.New(values)); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	forecasts, _, _, err := model.PredictWithInterval(2, 0.95)
	if err != nil {
		t.Fatal(err)
	}

	mu := model.Intercept
	f1 := 2*values[n-1] - values[n-2] + mu
	f2 := 2*f1 - values[n-1] + mu
	if math.Abs(forecasts[0]-f1) > 1e-6 || math.Abs(forecasts[1]-f2) > 1e-6 {
		t.Errorf("Expected [%f %f], got %v", f1, f2, forecasts)
	}
}

func TestPsiWeights(t *testing.T) {
	rw := New(0, 1, 0, 0, 0, 0, 12)
	for j, psi := range rw.PsiWeights(5) {
		if psi != 1 {
			t.Errorf("Random walk psi_%d should be 1, got %f", j, psi)
		}
	}

	seasonal := New(0, 0, 0, 0, 1, 0, 12)
	for j, psi := range seasonal.PsiWeights(30) {
		want := 0.0
		if j%12 == 0 {
			want = 1
		}
		if psi != want {
			t.Errorf("Seasonal random walk psi_%d: expected %f, got %f", j, want, psi)
		}
	}

	ar := New(1, 0, 0, 0, 0, 0, 12)
	ar.ARCoeffs[0] = 0.5
	for j, psi := range ar.PsiWeights(6) {
		if math.Abs(psi-math.Pow(0.5, float64(j))) > 1e-12 {
			t.Errorf("AR(1) psi_%d: expected %f, got %f", j, math.Pow(0.5, float64(j)), psi)
		}
	}

	ma := New(0, 1, 1, 0, 0, 0, 12)
	ma.MACoeffs[0] = -0.4
	psi := ma.PsiWeights(4)
	want := []float64{1, 0.6, 0.6, 0.6}
	for j := range want {
		if math.Abs(psi[j]-want[j]) > 1e-12 {
			t.Errorf("ARIMA(0,1,1) psi_%d: expected %f, got %f", j, want[j], psi[j])
		}
	}
}

func TestSARIMAPredictionIntervals(t *testing.T) {
	series := timeseries.New(passengerSeries(120, 500, 6))
	model := New(0, 1, 1, 0, 1, 1, 12)

	if err := model.Fit(series); err != nil {
		t.Fatalf("Failed to fit airline model: %v", err)
	}

	forecasts, lower, upper, err := model.PredictWithInterval(24, 0.95)
	if err != nil {
		t.Fatal(err)
	}

	prevWidth := 0.0
	for h := range forecasts {
		if !(lower[h] < forecasts[h] && forecasts[h] < upper[h]) {
			t.Errorf("Horizon %d: forecast %f outside [%f, %f]", h, forecasts[h], lower[h], upper[h])
		}
		width := upper[h] - lower[h]
		if width < prevWidth-1e-9 {
			t.Errorf("Interval width should not shrink: h=%d %f < %f", h, width, prevWidth)
		}
		prevWidth = width
	}

	first := (upper[0] - lower[0]) / 2
	if math.Abs(first-1.959964*math.Sqrt(model.Variance)) > 1e-3*first {
		t.Errorf("One-step half width should be z*sigma, got %f", first)
	}

	_, lo80, hi80, _ := model.PredictWithInterval(1, 0.80)
	if hi80[0]-lo80[0] >= upper[0]-lower[0] {
		t.Error("80% interval should be narrower than 95%")
	}
}

func TestSARIMAConstantSeriesDoesNotConverge(t *testing.T) {
	values := make([]float64, 48)
	for i := range values {
		values[i] = 7
	}

	err := New(0, 0, 0, 0, 0, 0, 12).Fit(timeseries.New(values))
	if !errors.Is(err, ErrNotConverged) {
		t.Errorf("Expected ErrNotConverged, got %v", err)
	}
}

func TestSARIMAInsufficientData(t *testing.T) {
	err := New(1, 1, 1, 1, 1, 1, 12).Fit(timeseries.New(passengerSeries(40, 10, 7)))

	var insufficient *timeseries.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientDataError, got %v", err)
	}
	if insufficient.Need != New(1, 1, 1, 1, 1, 1, 12).Order.MinObservations() {
		t.Errorf("Unexpected minimum %d", insufficient.Need)
	}
}

func TestPredictBeforeFit(t *testing.T) {
	if _, _, _, err := New(1, 0, 0, 0, 0, 0, 12).PredictWithInterval(3, 0.95); !errors.Is(err, ErrNotFitted) {
		t.Errorf("Expected ErrNotFitted, got %v", err)
	}
}

func TestSARIMAResiduals(t *testing.T) {
	n := 60
	series := timeseries.New(passengerSeries(n, 100, 8))
	model := New(1, 0, 0, 1, 0, 0, 12)

	if err := model.Fit(series); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	residuals := model.Residuals()
	if len(residuals) != model.NObs {
		t.Errorf("Expected %d residuals, got %d", model.NObs, len(residuals))
	}
}

func TestSARIMASummary(t *testing.T) {
	n := 72
	series := timeseries.New(passengerSeries(n, 100, 9))
	model := New(1, 0, 1, 0, 1, 1, 12)

	if err := model.Fit(series); err != nil {
		t.Fatalf("Failed to fit: %v", err)
	}

	summary := model.Summary(24)
	if summary == nil {
		t.Fatal("Summary should not be nil")
	}
	// (1,0,1)(0,1,1)[12] conditions on D*m + p = 13 observations.
	if summary.NObs != n-13 || summary.NObs != model.NObs {
		t.Errorf("Expected NObs=%d, got %d", n-13, summary.NObs)
	}
	if summary.LjungBox == nil || summary.LjungBox.DOF != 24-3 {
		t.Errorf("Expected Ljung-Box with 21 degrees of freedom, got %+v", summary.LjungBox)
	}
}

func TestSARIMAMultipleOrders(t *testing.T) {
	series := timeseries.New(passengerSeries(144, 100, 10))

	tests := []struct {
		name          string
		p, d, q       int
		sp, sd, sq, m int
	}{
		{"SARIMA(1,0,0)(1,0,0)12", 1, 0, 0, 1, 0, 0, 12},
		{"SARIMA(0,0,1)(0,0,1)12", 0, 0, 1, 0, 0, 1, 12},
		{"SARIMA(1,0,1)(1,0,1)12", 1, 0, 1, 1, 0, 1, 12},
		{"SARIMA(1,1,0)(1,1,0)12", 1, 1, 0, 1, 1, 0, 12},
		{"SARIMA(2,1,2)(0,1,2)12", 2, 1, 2, 0, 1, 2, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := New(tt.p, tt.d, tt.q, tt.sp, tt.sd, tt.sq, tt.m)
			if err := model.Fit(series); err != nil {
				t.Fatalf("Model %s failed: %v", tt.name, err)
			}

			forecasts, _, _, err := model.PredictWithInterval(6, 0.95)
			if err != nil {
				t.Fatalf("Prediction failed: %v", err)
			}
			for i, f := range forecasts {
				if math.IsNaN(f) || math.IsInf(f, 0) {
					t.Errorf("Forecast %d is NaN or Inf", i)
				}
			}
		})
	}
}

func TestFitConvergenceError(t *testing.T) {
	o := Order{P: 1, M: 12}
	err := error(&FitConvergenceError{Series: "LHR", Order: &o, Err: ErrNotConverged})

	if !errors.Is(err, ErrNotConverged) {
		t.Error("FitConvergenceError should unwrap to ErrNotConverged")
	}
	if err.Error() != `fit "LHR" with (1,0,0)(0,0,0)[12]: sarima: estimation did not converge` {
		t.Errorf("Unexpected message %q", err.Error())
	}

	all := &FitConvergenceError{Series: "LHR", Err: errors.New("3 of 3 candidates failed")}
	if all.Error() != `fit "LHR": no candidate order converged: 3 of 3 candidates failed` {
		t.Errorf("Unexpected message %q", all.Error())
	}
}

func TestSARIMACommonCondition(t *testing.T) {
	n := 120
	series := timeseries.New(passengerSeries(n, 100, 12))

	orders := []Order{
		{M: 12},
		{SQ: 2, M: 12},
		{Q: 2, SQ: 2, M: 12},
		{D: 1, SD: 1, SQ: 2, M: 12},
		{P: 2, D: 1, SD: 1, M: 12},
	}
	for _, o := range orders {
		model := NewFromOrder(o)
		model.Condition = 15
		if err := model.Fit(series); err != nil {
			t.Fatalf("Fit %s failed: %v", o, err)
		}
		if model.NObs != n-15 {
			t.Errorf("%s: expected likelihood over %d observations, got %d", o, n-15, model.NObs)
		}
		if len(model.Residuals()) != model.NObs {
			t.Errorf("%s: expected %d residuals, got %d", o, model.NObs, len(model.Residuals()))
		}
	}

	// Moving-average terms never shorten the window.
	ma := NewFromOrder(Order{SQ: 2, M: 12})
	if err := ma.Fit(series); err != nil {
		t.Fatal(err)
	}
	if ma.NObs != n {
		t.Errorf("Expected seasonal MA(2) over all %d observations, got %d", n, ma.NObs)
	}

	// A smaller Condition is raised to the order's own.
	ar := NewFromOrder(Order{P: 1, SP: 1, M: 12})
	ar.Condition = 2
	if err := ar.Fit(series); err != nil {
		t.Fatal(err)
	}
	if ar.NObs != n-13 {
		t.Errorf("Expected %d observations, got %d", n-13, ar.NObs)
	}
}

func TestSARIMAConditionTooLong(t *testing.T) {
	model := NewFromOrder(Order{M: 12})
	model.Condition = 40
	err := model.Fit(timeseries.New(passengerSeries(45, 100, 13)))

	var insufficient *timeseries.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientDataError, got %v", err)
	}
	if insufficient.Need != 40+minResiduals {
		t.Errorf("Expected need %d, got %d", 40+minResiduals, insufficient.Need)
	}
}
