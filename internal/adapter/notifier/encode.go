package notifier

import (
	"encoding/json"
	"fmt"

	"github.com/rl1809/apartment-sales/internal/adapter/contracts"
	"github.com/rl1809/apartment-sales/internal/core/domain"
)

func encodeEvent(event domain.Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.Type(), err)
	}
	if err := contracts.Validate(string(event.Type()), body); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", event.Type(), err)
	}
	return body, nil
}
