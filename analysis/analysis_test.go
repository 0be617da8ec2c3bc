package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sartorproj/paxarima/timeseries"
)

func seasonalTraffic(n int, seed int64) *timeseries.Series {
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = 50000 + 150*float64(i) + 12000*math.Sin(2*math.Pi*float64(i)/12) + 800*rng.NormFloat64()
	}
	s := timeseries.New(values)
	s.Name = "LHR"
	return s
}

func TestAnalyzeSeasonalSeries(t *testing.T) {
	for _, n := range []int{36, 60, 216} {
		r, err := Analyze(seasonalTraffic(n, int64(n)), Options{})
		require.NoError(t, err)

		assert.Equal(t, n, r.N)
		assert.Equal(t, 12, r.Period)
		require.NotNil(t, r.ACF)
		require.NotNil(t, r.PACF)
		assert.Len(t, r.ACF.Values, min(36, n-1))
		assert.InDelta(t, 1.96/math.Sqrt(float64(n)), r.ACF.Band, 1e-12)
		assert.True(t, r.SeasonalPeak(), "n=%d: ACF(11..13) = %v %v %v band %v",
			n, r.ACF.At(11), r.ACF.At(12), r.ACF.At(13), r.ACF.Band)
		assert.Greater(t, r.SeasonalStrength, 0.64)
		require.NotNil(t, r.Decomposition)
	}
}

func TestAnalyzeMinimumLength(t *testing.T) {
	r, err := Analyze(seasonalTraffic(24, 7), Options{})
	require.NoError(t, err)
	assert.Len(t, r.ACF.Values, 23)
	assert.NotNil(t, r.ADF)
	assert.True(t, r.SeasonalPeak(), "ACF(11..13) = %v %v %v band %v",
		r.ACF.At(11), r.ACF.At(12), r.ACF.At(13), r.ACF.Band)
}

func TestAnalyzeMultiplesOfSeasonalLag(t *testing.T) {
	r, err := Analyze(seasonalTraffic(216, 1), Options{})
	require.NoError(t, err)

	for _, lag := range []int{12, 24, 36} {
		assert.Greater(t, r.ACF.At(lag), r.ACF.Band, "lag %d", lag)
		assert.Contains(t, r.ACF.Significant, lag)
	}
}

func TestAnalyzeUnitRootEvidence(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	noise := make([]float64, 120)
	for i := range noise {
		noise[i] = 100 + rng.NormFloat64()
	}
	r, err := Analyze(timeseries.New(noise), Options{})
	require.NoError(t, err)
	require.NotNil(t, r.ADF)
	assert.True(t, r.UnitRootRejected())
	assert.Less(t, r.ADF.PValue, 0.05)
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := Analyze(seasonalTraffic(23, 1), Options{})
	var insufficient *timeseries.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 24, insufficient.Need)
	assert.Equal(t, "LHR", insufficient.Series)

	flat := timeseries.New(make([]float64, 36))
	flat.Name = "FLAT"
	_, err = Analyze(flat, Options{})
	var degenerate *timeseries.DegenerateSeriesError
	require.ErrorAs(t, err, &degenerate)
	assert.Equal(t, "FLAT", degenerate.Series)
}

func TestAnalyzeOptions(t *testing.T) {
	r, err := Analyze(seasonalTraffic(120, 3), Options{MaxLag: 20, KPSSRegression: "ct"})
	require.NoError(t, err)
	assert.Len(t, r.ACF.Values, 20)
	assert.Len(t, r.PACF.Values, 20)
	require.NotNil(t, r.KPSS)
	assert.Equal(t, 0.146, r.KPSS.CriticalVals["5%"])
}

func TestDifferenceLengths(t *testing.T) {
	s := seasonalTraffic(216, 4)

	tests := []struct {
		name            string
		first, seasonal bool
		want            int
	}{
		{"none", false, false, 216},
		{"first", true, false, 215},
		{"seasonal", false, true, 204},
		{"both", true, true, 203},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Difference(s, tt.first, tt.seasonal, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Series.Len())
			assert.Equal(t, 12, d.Lag)
		})
	}
}

func TestDifferenceRoundTrip(t *testing.T) {
	s := seasonalTraffic(60, 5)

	for _, c := range [][2]bool{{true, false}, {false, true}, {true, true}, {false, false}} {
		d, err := Difference(s, c[0], c[1], 12)
		require.NoError(t, err)

		back, err := d.Undo()
		require.NoError(t, err)
		require.Len(t, back, s.Len())
		for i := range back {
			assert.InDelta(t, s.Values[i], back[i], 1e-6)
		}
	}
}

func TestDifferenceRemovesSeasonality(t *testing.T) {
	d, err := Difference(seasonalTraffic(120, 6), true, true, 12)
	require.NoError(t, err)

	r, err := Analyze(d.Series, Options{})
	require.NoError(t, err)
	assert.Less(t, r.ACF.At(12), 0.0, "seasonal differencing of a fixed pattern leaves negative lag-12 correlation")
}

func TestDifferenceTooShort(t *testing.T) {
	_, err := Difference(timeseries.New([]float64{1, 2, 3}), true, true, 12)
	var insufficient *timeseries.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
}
