package models

// PortfolioMetrics are the headline numbers on the dashboard cards.
type PortfolioMetrics struct {
	TotalValue  float64 `json:"totalValue"`
	DailyPnL    float64 `json:"dailyPnL"`
	SharpeRatio float64 `json:"sharpeRatio"`
	Beta        float64 `json:"beta"`
}

// Allocation is a label-aligned percentage breakdown. Values sum to 100 for
// any non-empty grouping; both slices are empty when there is nothing to group.
type Allocation struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// PerformanceSeries is a date-aligned portfolio-vs-benchmark value series.
type PerformanceSeries struct {
	Dates           []string  `json:"dates"`
	PortfolioValues []float64 `json:"portfolioValues"`
	BenchmarkValues []float64 `json:"benchmarkValues"`
}

// RiskMetrics feed the radar chart on the dashboard.
type RiskMetrics struct {
	Volatility       float64 `json:"volatility"`
	Beta             float64 `json:"beta"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	Alpha            float64 `json:"alpha"`
	InformationRatio float64 `json:"informationRatio"`
}

// AnalyticsReport is the full payload consumed by the analytics frontend.
type AnalyticsReport struct {
	Metrics                PortfolioMetrics  `json:"metrics"`
	SectorAllocation       Allocation        `json:"sectorAllocation"`
	AssetClassDistribution Allocation        `json:"assetClassDistribution"`
	Performance            PerformanceSeries `json:"performance"`
	RiskMetrics            RiskMetrics       `json:"riskMetrics"`
}
