package domain

// StockLevel is a point-in-time copy of one product's ledger entry.
type StockLevel struct {
	Product     string `json:"product"`
	Quantity    int64  `json:"quantity"`
	MaxLevel    int64  `json:"max_level,omitempty"`
	HasMaxLevel bool   `json:"has_max_level"`
}
