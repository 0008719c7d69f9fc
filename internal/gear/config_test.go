package gear

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Configuration)
		wantErr bool
	}{
		{"valid", func(c *Configuration) {}, false},
		{"no actions", func(c *Configuration) { c.Actions = nil }, true},
		{"pmf sums below one", func(c *Configuration) { c.Actions[0].PMF[0] = 0 }, true},
		{"negative probability", func(c *Configuration) { c.Actions[0].PMF[0] = -0.125; c.Actions[0].PMF[1] = 0.375 }, true},
		{"negative gain", func(c *Configuration) { c.Actions[0].PinnacleGain = -1 }, true},
		{"arity too large", func(c *Configuration) { c.Actions[0].Arity = 256 }, true},
		{"caps inverted", func(c *Configuration) { c.PowerfulCap = 13 }, true},
		{"start above powerful cap", func(c *Configuration) { c.PowerfulStart = 11 }, true},
		{"too many actions", func(c *Configuration) {
			for len(c.Actions) <= MaxActions {
				c.Actions = append(c.Actions, c.Actions[0])
			}
		}, true},
		{"pmf within tolerance", func(c *Configuration) {
			c.Actions[0].PMF = [NumSlots]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	cfg := testConfig()
	if !cfg.Terminal(GearState{}, Budget{}) {
		t.Error("empty budget should be terminal")
	}
	if !cfg.Terminal(GearState{Mean: 12}, cfg.Caps()) {
		t.Error("mean at pinnacle cap should be terminal")
	}
	if cfg.Terminal(GearState{Mean: 11}, cfg.Caps()) {
		t.Error("mean below cap with budget should not be terminal")
	}
}
