package config

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggingConfig
		level   zapcore.Level
		wantErr bool
	}{
		{"defaults", LoggingConfig{}, zapcore.InfoLevel, false},
		{"debug json", LoggingConfig{Level: "debug", Format: "json"}, zapcore.DebugLevel, false},
		{"warn console", LoggingConfig{Level: "warn", Format: "console"}, zapcore.WarnLevel, false},
		{"invalid level", LoggingConfig{Level: "banana", Format: "json"}, 0, true},
		{"invalid format", LoggingConfig{Level: "info", Format: "xml"}, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewLogger(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
			if !logger.Core().Enabled(tc.level) {
				t.Errorf("level %s not enabled", tc.level)
			}
			if tc.level > zapcore.DebugLevel && logger.Core().Enabled(tc.level-1) {
				t.Errorf("level %s should be disabled", tc.level-1)
			}
		})
	}
}
