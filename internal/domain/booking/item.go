package booking

import (
	"fmt"
	"strings"

	"github.com/zm-collect/service-booking/internal/platform/domain"
)

// MaxItems is the most items a single booking may list.
const MaxItems = 10

// Item is one piece of bulky waste to be collected.
type Item struct {
	Name        string
	Description string
}

// NewItems trims and validates the requested items, preserving their order.
func NewItems(raw []Item) ([]Item, error) {
	if len(raw) == 0 {
		return nil, domain.NewValidationError("at least one item is required")
	}
	if len(raw) > MaxItems {
		return nil, domain.NewValidationError(
			fmt.Sprintf("too many items: %d (maximum is %d)", len(raw), MaxItems))
	}

	items := make([]Item, 0, len(raw))
	for i, it := range raw {
		name := strings.TrimSpace(it.Name)
		desc := strings.TrimSpace(it.Description)
		if name == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("item %d: name is required", i+1))
		}
		if desc == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("item %d: description is required", i+1))
		}
		items = append(items, Item{Name: name, Description: desc})
	}
	return items, nil
}
