package analytics

// Static symbol classification for allocation charts. Covers the common
// NSE large caps; anything unmapped lands in the default bucket.

const defaultSector = "Others"

var sectorBySymbol = map[string]string{
	"TCS":        "IT",
	"INFY":       "IT",
	"WIPRO":      "IT",
	"HCLTECH":    "IT",
	"TECHM":      "IT",
	"LTIM":       "IT",
	"HDFCBANK":   "Banking",
	"ICICIBANK":  "Banking",
	"SBIN":       "Banking",
	"KOTAKBANK":  "Banking",
	"AXISBANK":   "Banking",
	"BAJFINANCE": "Financial Services",
	"BAJAJFINSV": "Financial Services",
	"HDFCLIFE":   "Financial Services",
	"SBILIFE":    "Financial Services",
	"RELIANCE":   "Energy",
	"ONGC":       "Energy",
	"IOC":        "Energy",
	"BPCL":       "Energy",
	"NTPC":       "Energy",
	"POWERGRID":  "Energy",
	"ITC":        "FMCG",
	"HINDUNILVR": "FMCG",
	"NESTLEIND":  "FMCG",
	"BRITANNIA":  "FMCG",
	"TATACONSUM": "FMCG",
	"SUNPHARMA":  "Pharma",
	"DRREDDY":    "Pharma",
	"CIPLA":      "Pharma",
	"DIVISLAB":   "Pharma",
	"APOLLOHOSP": "Healthcare",
	"TATAMOTORS": "Auto",
	"MARUTI":     "Auto",
	"M&M":        "Auto",
	"BAJAJ-AUTO": "Auto",
	"EICHERMOT":  "Auto",
	"HEROMOTOCO": "Auto",
	"TATASTEEL":  "Metals",
	"JSWSTEEL":   "Metals",
	"HINDALCO":   "Metals",
	"COALINDIA":  "Metals",
	"LT":         "Infrastructure",
	"ADANIENT":   "Infrastructure",
	"ADANIPORTS": "Infrastructure",
	"ULTRACEMCO": "Cement",
	"GRASIM":     "Cement",
	"BHARTIARTL": "Telecom",
	"TITAN":      "Consumer Durables",
	"ASIANPAINT": "Consumer Durables",
}

const defaultAssetClass = "Equity"

var assetClassBySymbol = map[string]string{
	"NIFTYBEES":  "ETF",
	"JUNIORBEES": "ETF",
	"BANKBEES":   "ETF",
	"ICICIB22":   "ETF",
	"MON100":     "ETF",
	"GOLDBEES":   "Gold",
	"SGBDEC31":   "Gold",
	"LIQUIDBEES": "Debt",
	"LIQUIDCASE": "Debt",
}

// SectorOf returns the sector bucket for a trading symbol.
func SectorOf(symbol string) string {
	if s, ok := sectorBySymbol[symbol]; ok {
		return s
	}
	return defaultSector
}

// AssetClassOf returns the asset-class bucket for a trading symbol. Unmapped
// listed instruments are treated as plain equity.
func AssetClassOf(symbol string) string {
	if c, ok := assetClassBySymbol[symbol]; ok {
		return c
	}
	return defaultAssetClass
}
