// Package io provides input/output utilities for transaction tables.
package io

import "github.com/kshitij1706/fraud-anomaly-detection/pkg/frame"

// Reader is the interface for reading a transaction table from a source.
type Reader interface {
	// Read returns the complete table.
	Read() (*frame.Frame, error)

	// Close releases resources.
	Close() error
}

// Writer is the interface for writing an annotated table.
type Writer interface {
	// Write outputs the whole table.
	Write(f *frame.Frame) error

	// Close flushes and releases resources.
	Close() error
}

// Result is the scoring outcome for a single transaction.
type Result struct {
	// Score is the model decision value; more negative is more anomalous.
	Score float64 `json:"anomaly_score"`
	// Flag is 1 for an anomalous transaction, 0 otherwise.
	Flag int `json:"anomaly_flag"`
}
