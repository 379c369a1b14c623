package trend

import (
	"math"
	"sort"
	"strconv"
)

// Forecast fits a per-year linear regression over the series and projects it
// forward. Duplicate observations within a year keep the highest count.
// Fewer than two distinct years returns the input unchanged with an empty
// forecast.
func Forecast(points []SeriesPoint, topic string, horizonDays, currentYear int) *Result {
	yearCounts := make(map[int]int)
	for _, p := range points {
		if len(p.Date) < 4 {
			continue
		}
		year, err := strconv.Atoi(p.Date[:4])
		if err != nil {
			continue
		}
		if c, ok := yearCounts[year]; !ok || p.Count > c {
			yearCounts[year] = p.Count
		}
	}

	if len(yearCounts) < 2 {
		return &Result{
			Historical: points,
			Forecast:   []ForecastPoint{},
			Stats:      Stats{TrendFactor: 1.0, Topic: topic},
		}
	}

	years := make([]int, 0, len(yearCounts))
	for y := range yearCounts {
		years = append(years, y)
	}
	sort.Ints(years)

	xs := make([]float64, len(years))
	ys := make([]float64, len(years))
	for i, y := range years {
		xs[i] = float64(y)
		ys[i] = float64(yearCounts[y])
	}

	slope, intercept := fitLine(xs, ys)
	stdErr, rSquared := fitQuality(xs, ys, slope, intercept)

	lastYear := years[len(years)-1]
	startYear := currentYear
	if lastYear > startYear {
		startYear = lastYear
	}
	startYear++

	forecastYears := horizonDays / 365
	if forecastYears < 1 {
		forecastYears = 1
	}

	forecast := make([]ForecastPoint, 0, forecastYears)
	for i := 0; i < forecastYears; i++ {
		year := startYear + i
		prediction := slope*float64(year) + intercept
		if prediction < 0 {
			prediction = 0
		}
		uncertainty := 1.96 * stdErr * (1 + float64(i)*0.1)
		lower := prediction - uncertainty
		if lower < 0 {
			lower = 0
		}
		forecast = append(forecast, ForecastPoint{
			Date:       strconv.Itoa(year),
			Prediction: math.Round(prediction),
			Upper:      math.Round(prediction + uncertainty),
			Lower:      math.Round(lower),
		})
	}

	historical := make([]SeriesPoint, 0, len(years))
	for _, y := range years {
		historical = append(historical, SeriesPoint{Date: strconv.Itoa(y), Count: yearCounts[y]})
	}

	avg := mean(ys)
	trendFactor := 1.0
	if avg > 0 {
		trendFactor = 1.0 + slope/avg
	}

	return &Result{
		Historical: historical,
		Forecast:   forecast,
		Stats: Stats{
			TrendFactor: round2(trendFactor),
			Volatility:  round2(stdErr),
			RSquared:    round2(rSquared),
			Slope:       round2(slope),
			Topic:       topic,
		},
	}
}

// fitLine is ordinary least squares over (xs, ys).
func fitLine(xs, ys []float64) (slope, intercept float64) {
	mx, my := mean(xs), mean(ys)
	var num, den float64
	for i := range xs {
		num += (xs[i] - mx) * (ys[i] - my)
		den += (xs[i] - mx) * (xs[i] - mx)
	}
	if den == 0 {
		return 0, my
	}
	slope = num / den
	return slope, my - slope*mx
}

// fitQuality returns the residual standard deviation and r-squared.
func fitQuality(xs, ys []float64, slope, intercept float64) (stdErr, rSquared float64) {
	my := mean(ys)
	var ssRes, ssTot float64
	for i := range xs {
		pred := slope*xs[i] + intercept
		ssRes += (ys[i] - pred) * (ys[i] - pred)
		ssTot += (ys[i] - my) * (ys[i] - my)
	}
	stdErr = math.Sqrt(ssRes / float64(len(xs)))
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}
	return stdErr, rSquared
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
