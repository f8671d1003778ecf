package profile

import (
	"fmt"
	"strings"
)

// Strategy selects how a session's tasks are dispatched.
type Strategy int

const (
	// StrategySerial queues every task on one dedicated worker, executed in
	// submission order.
	StrategySerial Strategy = iota + 1

	// StrategyConcurrent spreads tasks over the worker pool.
	StrategyConcurrent
)

func (s Strategy) String() string {
	switch s {
	case StrategySerial:
		return "serial"
	case StrategyConcurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	return s == StrategySerial || s == StrategyConcurrent
}

// ParseStrategy accepts "serial" or "concurrent", case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "serial":
		return StrategySerial, nil
	case "concurrent":
		return StrategyConcurrent, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q (want serial or concurrent)", name)
	}
}

func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
