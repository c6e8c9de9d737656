package loghub

import (
	"testing"

	"github.com/rmacdonaldsmith/loghub-go/internal/history"
)

func TestNewConfig(t *testing.T) {
	config := NewConfig()
	if config.MaxRetainSize != history.DefaultCapacity {
		t.Errorf("Expected default MaxRetainSize %d, got %d", history.DefaultCapacity, config.MaxRetainSize)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{"positive", 3, nil},
		{"zero falls back later", 0, nil},
		{"negative", -1, ErrInvalidRetainSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&Config{MaxRetainSize: tt.size}).Validate()
			if err != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_SetDefaultsKeepsExplicitValue(t *testing.T) {
	config := &Config{MaxRetainSize: 10}
	config.SetDefaults()
	if config.MaxRetainSize != 10 {
		t.Errorf("Expected explicit value to be kept, got %d", config.MaxRetainSize)
	}
}
