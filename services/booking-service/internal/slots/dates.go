package slots

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/vetbook/services/booking-service/internal/model"
)

func spanDays(from, to string) (int, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return 0, fmt.Errorf("start_date %q: %w", from, model.ErrInvalidArgument)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return 0, fmt.Errorf("end_date %q: %w", to, model.ErrInvalidArgument)
	}
	if end.Before(start) {
		return 0, fmt.Errorf("end_date before start_date: %w", model.ErrInvalidArgument)
	}
	return int(end.Sub(start).Hours()/24) + 1, nil
}
