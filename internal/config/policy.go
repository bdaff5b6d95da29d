package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avstrong/bookingdesk/internal/booking"
	"github.com/avstrong/bookingdesk/internal/loyalty"
)

// PolicyFile is the YAML document with the business rules that vary per
// property:
//
//	reschedule_buffer: 48h
//	tiers:
//	  - name: Silver
//	    min_points: 0
//	    multiplier: 1
type PolicyFile struct {
	RescheduleBuffer time.Duration  `yaml:"reschedule_buffer"`
	Tiers            []loyalty.Tier `yaml:"tiers"`
}

type Policy struct {
	Booking booking.Policy
	Tiers   *loyalty.TierTable
}

// LoadPolicy reads path, or returns the built-in policy when path is empty.
// Keys left out of the file keep their defaults.
func LoadPolicy(path string) (*Policy, error) {
	pf := PolicyFile{
		RescheduleBuffer: booking.DefaultPolicy().RescheduleBuffer,
		Tiers:            loyalty.DefaultTiers(),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading policy %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("parsing policy %s: %w", path, err)
		}
	}

	if pf.RescheduleBuffer < 0 {
		return nil, fmt.Errorf("%w: reschedule_buffer must not be negative", ErrInvalid)
	}

	tiers, err := loyalty.NewTierTable(pf.Tiers)
	if err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}

	return &Policy{
		Booking: booking.Policy{RescheduleBuffer: pf.RescheduleBuffer},
		Tiers:   tiers,
	}, nil
}
