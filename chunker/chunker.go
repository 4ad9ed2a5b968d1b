package chunker

import (
	"fmt"

	"reelmerge/models"
)

const (
	// DefaultChunkSize is the default number of clips merged in one pass
	DefaultChunkSize = 8

	// MinChunkSize is the smallest chunk size that still makes progress
	MinChunkSize = 2

	// MaxChunkSize bounds the number of inputs on one ffmpeg command line
	MaxChunkSize = 256
)

// Chunker splits an ordered clip list into fixed-size batches
type Chunker struct {
	chunkSize int
}

// NewChunker creates a new Chunker with default settings
func NewChunker() *Chunker {
	return &Chunker{chunkSize: DefaultChunkSize}
}

// SetChunkSize sets the number of clips per batch
func (c *Chunker) SetChunkSize(size int) *Chunker {
	c.chunkSize = size
	return c
}

// ChunkSize returns the configured chunk size
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// NeedsChunking reports whether n clips exceed one batch
func (c *Chunker) NeedsChunking(n int) bool {
	return n > c.chunkSize
}

// CreateBatches splits clips into consecutive batches of at most chunkSize
// clips, preserving order. Batch IDs start at 1.
//
// Example: 29 clips with chunk size 8 yield batches of 8, 8, 8 and 5.
func (c *Chunker) CreateBatches(clips []*models.ClipDescriptor, level int) ([]*models.Batch, error) {
	if err := c.validateSize(); err != nil {
		return nil, err
	}
	if len(clips) == 0 {
		return nil, fmt.Errorf("clip list cannot be empty")
	}

	count := (len(clips) + c.chunkSize - 1) / c.chunkSize
	batches := make([]*models.Batch, 0, count)

	for i := 0; i < count; i++ {
		start := i * c.chunkSize
		end := start + c.chunkSize
		if end > len(clips) {
			end = len(clips)
		}

		batch, err := models.NewBatch(uint(i+1), level, clips[start:end:end])
		if err != nil {
			return nil, fmt.Errorf("invalid batch %d: %w", i+1, err)
		}
		batches = append(batches, batch)
	}

	return batches, nil
}

// MergeCount returns how many merge operations a request of n clips takes:
// one per batch on every level until a single output remains.
//
// 29 clips at size 8: 4 chunk merges, then 1 final merge = 5.
func (c *Chunker) MergeCount(n int) (int, error) {
	if err := c.validateSize(); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("clip count must be positive")
	}
	total := 0
	for {
		batches := (n + c.chunkSize - 1) / c.chunkSize
		total += batches
		if batches == 1 {
			return total, nil
		}
		n = batches
	}
}

func (c *Chunker) validateSize() error {
	if c.chunkSize < MinChunkSize {
		return fmt.Errorf("chunk size must be at least %d", MinChunkSize)
	}
	if c.chunkSize > MaxChunkSize {
		return fmt.Errorf("chunk size cannot exceed %d", MaxChunkSize)
	}
	return nil
}

// ValidateBatches validates a sequence of batches for completeness and order
func ValidateBatches(batches []*models.Batch) error {
	if len(batches) == 0 {
		return fmt.Errorf("batch list is empty")
	}

	// Validate each batch individually
	for i, batch := range batches {
		if err := batch.Validate(); err != nil {
			return fmt.Errorf("batch %d is invalid: %w", i, err)
		}
	}

	// Check for consistent level
	level := batches[0].Level
	for i, batch := range batches {
		if batch.Level != level {
			return fmt.Errorf("batch %d has different level: expected %d, got %d", i, level, batch.Level)
		}
	}

	// Check for sequential batch IDs
	for i, batch := range batches {
		expectedID := uint(i + 1)
		if batch.BatchID != expectedID {
			return fmt.Errorf("batch %d has incorrect ID: expected %d, got %d", i, expectedID, batch.BatchID)
		}
	}

	// A clip may appear in only one batch
	seen := make(map[*models.ClipDescriptor]uint)
	for _, batch := range batches {
		for _, clip := range batch.Clips {
			if prev, ok := seen[clip]; ok {
				return fmt.Errorf("clip %s appears in batches %d and %d", clip.Path, prev, batch.BatchID)
			}
			seen[clip] = batch.BatchID
		}
	}

	return nil
}
