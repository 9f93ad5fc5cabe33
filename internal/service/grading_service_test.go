package service

import (
	"testing"

	"github.com/examsight/api/internal/client"
)

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  X = 4 ", "x=4"},
		{"42.", "42"},
		{"Paris", "paris"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := normalizeAnswer(tt.in); got != tt.want {
			t.Errorf("normalizeAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAnswersMatch(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		answer   client.FinalAnswer
		want     bool
	}{
		{
			name:     "exact text match",
			expected: "42",
			answer:   client.FinalAnswer{ExtractedText: "42"},
			want:     true,
		},
		{
			name:     "case and spacing ignored",
			expected: "x = 4",
			answer:   client.FinalAnswer{ExtractedText: "X=4"},
			want:     true,
		},
		{
			name:     "formula preferred over noisy text",
			expected: "x^2 + 1",
			answer:   client.FinalAnswer{ExtractedText: "x2+l", LatexFormula: "x^2 + 1"},
			want:     true,
		},
		{
			name:     "text still matches when formula differs",
			expected: "42",
			answer:   client.FinalAnswer{ExtractedText: "42", LatexFormula: "41"},
			want:     true,
		},
		{
			name:     "wrong answer",
			expected: "42",
			answer:   client.FinalAnswer{ExtractedText: "43"},
			want:     false,
		},
		{
			name:     "empty expected never matches",
			expected: "",
			answer:   client.FinalAnswer{ExtractedText: ""},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := answersMatch(tt.expected, tt.answer); got != tt.want {
				t.Errorf("answersMatch(%q, %+v) = %v, want %v", tt.expected, tt.answer, got, tt.want)
			}
		})
	}
}
