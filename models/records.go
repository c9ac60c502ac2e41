package models

import "strconv"

// Block is one row in the blocks drill-down table.
type Block struct {
	Number    uint64 `json:"number"`
	Hash      string `json:"hash"`
	Timestamp int64  `json:"timestamp"` // milliseconds since epoch
	TxCount   int    `json:"txCount"`
	GasUsed   uint64 `json:"gasUsed"`
	GasLimit  uint64 `json:"gasLimit"`
	Proposer  string `json:"proposer"`
}

// Cursor returns the pagination cursor value for the block.
func (b Block) Cursor() string { return strconv.FormatUint(b.Number, 10) }

// Transaction is one row in the transactions drill-down table.
type Transaction struct {
	Hash        string `json:"hash"`
	BlockNumber uint64 `json:"blockNumber"`
	Index       int    `json:"index"`
	Timestamp   int64  `json:"timestamp"` // milliseconds since epoch
	From        string `json:"from"`
	To          string `json:"to"`
	ValueWei    string `json:"valueWei"`
	GasUsed     uint64 `json:"gasUsed"`
	Success     bool   `json:"success"`
	SortOrder   string `json:"sortOrder"`
}

// Cursor returns the pagination cursor value for the transaction.
func (t Transaction) Cursor() string { return t.SortOrder }

// Table kinds used for drill-down pages and cache keys.
const (
	TableBlocks       = "blocks"
	TableTransactions = "transactions"
	TableDistribution = "distribution"
)

// TablePage is one cached drill-down page. Rows holds []Block,
// []Transaction or []DistributionSlice depending on Kind.
type TablePage struct {
	Kind      string    `json:"kind"`
	Range     TimeRange `json:"range"`
	Page      int       `json:"page"`
	Rows      any       `json:"rows"`
	Count     int       `json:"count"`
	FetchedAt int64     `json:"fetchedAt"` // milliseconds since epoch
}

// DistributionSlice is one bucket in a fee/usage distribution breakdown.
type DistributionSlice struct {
	Label       string  `json:"label"`
	Count       int64   `json:"count"`
	TotalFeeWei string  `json:"totalFeeWei"`
	Share       float64 `json:"share"`
	SortOrder   string  `json:"sortOrder"`
}

// Cursor returns the pagination cursor value for the slice.
func (d DistributionSlice) Cursor() string { return d.SortOrder }
