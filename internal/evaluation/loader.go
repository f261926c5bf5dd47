package evaluation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

// LoadGoldenOrders reads and parses a golden order set from a JSON file.
func LoadGoldenOrders(path string) ([]GoldenOrder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden orders file: %w", err)
	}

	var orders []GoldenOrder
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("failed to parse golden orders: %w", err)
	}

	return orders, nil
}

var validQueues = map[entities.Queue]bool{
	entities.QueueAutoApproved: true,
	entities.QueueLabTech:      true,
	entities.QueueEngineer:     true,
}

// ValidateGoldenOrders checks that all golden orders have required fields and valid values.
func ValidateGoldenOrders(orders []GoldenOrder) error {
	seen := make(map[string]struct{}, len(orders))

	for i, o := range orders {
		if o.ID == "" {
			return fmt.Errorf("order at index %d: missing id", i)
		}
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("order at index %d: duplicate id %q", i, o.ID)
		}
		seen[o.ID] = struct{}{}

		if !validQueues[o.ExpectedQueue] {
			return fmt.Errorf("order %q: invalid expected queue %q", o.ID, o.ExpectedQueue)
		}
		if o.ExpectedQueue == entities.QueueAutoApproved && !o.ExpectedValid {
			return fmt.Errorf("order %q: an invalid order cannot be expected to auto-approve", o.ID)
		}
		if !o.Difficulty.IsValid() {
			return fmt.Errorf("order %q: invalid difficulty %q (must be easy/medium/hard)", o.ID, o.Difficulty)
		}
	}

	return nil
}
