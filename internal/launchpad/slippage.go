// internal/launchpad/slippage.go
package launchpad

import (
	"fmt"

	"github.com/rovshanmuradov/launchpad/internal/curve"
)

// SlippageType определяет тип политики проскальзывания
type SlippageType string

const (
	// SlippageFixed uses Value as the minimum output verbatim.
	SlippageFixed SlippageType = "fixed"
	// SlippageBps accepts up to Value basis points below the quoted output.
	SlippageBps SlippageType = "bps"
	// SlippageNone accepts any output.
	SlippageNone SlippageType = "none"
)

// SlippageConfig конфигурирует политику проскальзывания
type SlippageConfig struct {
	Type  SlippageType `json:"type" mapstructure:"type"`
	Value uint64       `json:"value" mapstructure:"value"`
}

// MinAmountOut turns a quoted output into the minimum a trade should accept.
func MinAmountOut(expected uint64, cfg SlippageConfig) (uint64, error) {
	switch cfg.Type {
	case SlippageFixed:
		return cfg.Value, nil
	case SlippageBps:
		if cfg.Value > curve.BpsDenominator {
			return 0, fmt.Errorf("%w: slippage %d bps", ErrInvalidBps, cfg.Value)
		}
		// минимум = expected * (10000 - bps) / 10000, округление вниз
		out, err := curve.ApplyBps(expected, uint16(curve.BpsDenominator-cfg.Value))
		return out, mathErr(err)
	case SlippageNone, "":
		return 0, nil
	}
	return 0, fmt.Errorf("unknown slippage type %q", cfg.Type)
}
