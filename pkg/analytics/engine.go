package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/pranaypatel512/KiteMCP/pkg/models"
)

// SeriesProvider supplies the performance and risk series for a report.
// The default implementation generates a deterministic synthetic curve; a
// historical-price-backed provider can be swapped in without touching the
// engine's contract.
type SeriesProvider interface {
	Performance(totalValue float64, now time.Time) models.PerformanceSeries
	Risk(sharpe float64) models.RiskMetrics
}

// Engine derives portfolio analytics from raw holdings and positions
// snapshots. Compute is total: any input, including empty, yields a report.
type Engine struct {
	series SeriesProvider
}

func NewEngine(series SeriesProvider) *Engine {
	if series == nil {
		series = defaultSeriesProvider{}
	}
	return &Engine{series: series}
}

// Compute aggregates a holdings/positions snapshot into dashboard analytics.
// Holdings with non-positive quantity are excluded throughout; positions are
// part of the snapshot contract but the headline metrics derive from
// holdings only.
func (e *Engine) Compute(holdings []models.Holding, positions models.Positions) models.AnalyticsReport {
	_ = positions

	var (
		totalValue float64
		dailyPnL   float64
		returns    []float64
	)
	sectorValues := map[string]float64{}
	assetValues := map[string]float64{}

	for _, h := range holdings {
		if h.Quantity <= 0 {
			continue
		}
		value := h.MarketValue()
		totalValue += value
		dailyPnL += h.PnL

		if invested := h.AveragePrice * float64(h.Quantity); invested != 0 {
			returns = append(returns, h.PnL/invested)
		}

		sectorValues[SectorOf(h.TradingSymbol)] += value
		assetValues[AssetClassOf(h.TradingSymbol)] += value
	}

	sharpe := sharpeRatio(returns)
	risk := e.series.Risk(sharpe)

	return models.AnalyticsReport{
		Metrics: models.PortfolioMetrics{
			TotalValue:  totalValue,
			DailyPnL:    dailyPnL,
			SharpeRatio: sharpe,
			Beta:        risk.Beta,
		},
		SectorAllocation:       toAllocation(sectorValues),
		AssetClassDistribution: toAllocation(assetValues),
		Performance:            e.series.Performance(totalValue, time.Now()),
		RiskMetrics:            risk,
	}
}

// sharpeRatio is mean(returns)/stddev(returns) with population stddev.
// Empty input or zero spread yields 0, never NaN.
func sharpeRatio(returns []float64) float64 {
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std
}

func meanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)))
}

// toAllocation converts grouped values into a percentage breakdown ordered by
// descending weight. A zero total yields empty slices rather than dividing
// by zero.
func toAllocation(values map[string]float64) models.Allocation {
	total := 0.0
	for _, v := range values {
		total += v
	}

	alloc := models.Allocation{
		Labels: []string{},
		Values: []float64{},
	}
	if total == 0 {
		return alloc
	}

	labels := make([]string, 0, len(values))
	for label := range values {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if values[labels[i]] != values[labels[j]] {
			return values[labels[i]] > values[labels[j]]
		}
		return labels[i] < labels[j]
	})

	for _, label := range labels {
		alloc.Labels = append(alloc.Labels, label)
		alloc.Values = append(alloc.Values, values[label]/total*100)
	}
	return alloc
}

// defaultSeriesProvider generates a fixed-length deterministic growth curve
// over a trailing 30-day window plus fixed risk figures. It stands in until
// a historical-data-backed provider exists.
type defaultSeriesProvider struct{}

const seriesDays = 30

func (defaultSeriesProvider) Performance(totalValue float64, now time.Time) models.PerformanceSeries {
	series := models.PerformanceSeries{
		Dates:           make([]string, 0, seriesDays),
		PortfolioValues: make([]float64, 0, seriesDays),
		BenchmarkValues: make([]float64, 0, seriesDays),
	}

	for i := 0; i < seriesDays; i++ {
		day := now.AddDate(0, 0, i-(seriesDays-1))
		progress := float64(i) / float64(seriesDays-1)

		series.Dates = append(series.Dates, day.Format("2006-01-02"))
		// Portfolio climbs from 94% of current value; benchmark from 96%.
		series.PortfolioValues = append(series.PortfolioValues, totalValue*(0.94+0.06*progress))
		series.BenchmarkValues = append(series.BenchmarkValues, totalValue*(0.96+0.04*progress))
	}
	return series
}

func (defaultSeriesProvider) Risk(sharpe float64) models.RiskMetrics {
	return models.RiskMetrics{
		Volatility:       0.18,
		Beta:             1.05,
		SharpeRatio:      sharpe,
		Alpha:            0.02,
		InformationRatio: 0.65,
	}
}
