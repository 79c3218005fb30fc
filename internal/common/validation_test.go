package common

import (
	"testing"
)

var defaultFormats = []string{"json", "text", "markdown", "resume"}

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectError      bool
		expectedError    string
	}{
		{
			name:             "valid format - json",
			format:           "json",
			supportedFormats: defaultFormats,
		},
		{
			name:             "valid format - resume",
			format:           "resume",
			supportedFormats: defaultFormats,
		},
		{
			name:             "invalid format - xml",
			format:           "xml",
			supportedFormats: defaultFormats,
			expectError:      true,
			expectedError:    "unsupported output format 'xml'. Supported formats: [json text markdown resume]",
		},
		{
			name:             "case sensitive - JSON uppercase",
			format:           "JSON",
			supportedFormats: defaultFormats,
			expectError:      true,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json text markdown resume]",
		},
		{
			name:             "empty format string",
			format:           "",
			supportedFormats: []string{"json"},
			expectError:      true,
			expectedError:    "unsupported output format ''. Supported formats: [json]",
		},
		{
			name:             "empty supported formats - should allow all",
			format:           "xml",
			supportedFormats: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
					return
				}
				if tt.expectedError != "" && err.Error() != tt.expectedError {
					t.Errorf("Expected error '%s', got '%s'", tt.expectedError, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestValidateCommandFormat(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		tailoring   bool
		expectError bool
	}{
		{"resume while tailoring", "resume", true, false},
		{"resume while extracting", "resume", false, true},
		{"text while extracting", "text", false, false},
		{"unknown format", "csv", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommandFormat(tt.format, defaultFormats, tt.tailoring)
			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestGetSupportedFormats(t *testing.T) {
	tests := []struct {
		name      string
		tailoring bool
		expected  []string
	}{
		{"tailoring keeps every format", true, []string{"json", "text", "markdown", "resume"}},
		{"other commands drop resume", false, []string{"json", "text", "markdown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetSupportedFormats(defaultFormats, tt.tailoring)

			if len(result) != len(tt.expected) {
				t.Errorf("Expected %d formats, got %d", len(tt.expected), len(result))
				return
			}
			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("Expected format[%d] = '%s', got '%s'", i, expected, result[i])
				}
			}
		})
	}
}

func BenchmarkValidateOutputFormat(b *testing.B) {
	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", defaultFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", defaultFormats)
		}
	})
}
