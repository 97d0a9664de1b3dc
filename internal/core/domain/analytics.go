package domain

import "github.com/shopspring/decimal"

type PriceCategory string

const (
	PriceAboveAverage PriceCategory = "Above Average"
	PriceBelowAverage PriceCategory = "Below Average"
	PriceAverage      PriceCategory = "Average"
)

type PriceSegment string

const (
	SegmentBudget   PriceSegment = "Budget"
	SegmentMidRange PriceSegment = "Mid-Range"
	SegmentPremium  PriceSegment = "Premium"
)

type StockStatus string

const (
	StockCritical StockStatus = "Critical"
	StockLow      StockStatus = "Low"
	StockAdequate StockStatus = "Adequate"
)

type AnnotatedItem struct {
	Item
	Category         PriceCategory
	PercentOfAverage decimal.Decimal
}

type RankedItem struct {
	Item
	PriceRank  int
	Percentile float64
	Segment    PriceSegment
}

type StockAnnotatedItem struct {
	Item
	Status           StockStatus
	PercentOfAverage decimal.Decimal
	CatalogAvgStock  decimal.Decimal
	CatalogMinStock  int
	CatalogMaxStock  int
}

var hundred = decimal.NewFromInt(100)

func CategorizePrice(price, avg decimal.Decimal) PriceCategory {
	switch price.Cmp(avg) {
	case 1:
		return PriceAboveAverage
	case -1:
		return PriceBelowAverage
	}
	return PriceAverage
}

func SegmentFor(percentile float64) PriceSegment {
	switch {
	case percentile <= 0.25:
		return SegmentBudget
	case percentile <= 0.75:
		return SegmentMidRange
	}
	return SegmentPremium
}

// ClassifyStock gives Critical priority over Low.
func ClassifyStock(stock, threshold int, avg decimal.Decimal) StockStatus {
	if stock <= threshold {
		return StockCritical
	}
	if decimal.NewFromInt(int64(stock)).LessThanOrEqual(avg.Div(decimal.NewFromInt(2))) {
		return StockLow
	}
	return StockAdequate
}

// PercentOf returns part/whole*100 rounded to two places, or zero for a zero whole.
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// ChangePercent is (current-previous)/previous*100; nil when previous is zero.
func ChangePercent(current, previous decimal.Decimal) *decimal.Decimal {
	if previous.IsZero() {
		return nil
	}
	pct := current.Sub(previous).Div(previous).Mul(hundred).Round(2)
	return &pct
}
