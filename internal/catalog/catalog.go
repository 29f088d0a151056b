// Package catalog loads the static destination catalog compiled into the
// binary. The catalog is validated once at load; a bad entry fails startup.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/motoclube/roleplanner/internal/domain"
)

//go:embed destinations.json
var destinationsJSON []byte

// Default returns the embedded catalog in file order.
func Default() ([]domain.Destination, error) {
	return Parse(destinationsJSON)
}

// Parse decodes and validates a catalog document. Names must be unique.
func Parse(data []byte) ([]domain.Destination, error) {
	var dests []domain.Destination
	if err := json.Unmarshal(data, &dests); err != nil {
		return nil, fmt.Errorf("catalog.Parse: %w: %v", domain.ErrValidation, err)
	}

	seen := make(map[string]struct{}, len(dests))
	for i, d := range dests {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("catalog.Parse: entry %d: %w", i, err)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("catalog.Parse: entry %d: %w: %q", i, domain.ErrDuplicateKey, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return dests, nil
}
