package service

import "stockledger/internal/model"

// classifyStock derives the stock status from a quantity and its threshold.
// A quantity equal to the threshold already counts as low.
func classifyStock(quantity, minStockLevel int) model.StockStatus {
	switch {
	case quantity <= 0:
		return model.StatusOutOfStock
	case quantity <= minStockLevel:
		return model.StatusLowStock
	default:
		return model.StatusInStock
	}
}

// isAlertTransition reports whether moving from prev to next should raise a
// stock alert.
func isAlertTransition(prev, next model.StockStatus) bool {
	return prev != next && next != model.StatusInStock
}
