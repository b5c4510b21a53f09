package fetch

import (
	"strings"
	"testing"
)

func TestChallengeDetector(t *testing.T) {
	d := NewChallengeDetector(10,
		[]string{"verify you are human", "cf-browser-verification"},
		[]string{"#challenge-form"})

	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "tiny body triggers", body: "hi", want: true},
		{name: "keyword triggers", body: "<html><body>Please Verify You Are Human to continue</body></html>", want: true},
		{name: "selector triggers", body: `<html><body><form id="challenge-form"></form></body></html>`, want: true},
		{name: "clean article passes", body: "<html><body><article><p>Inflation cooled in July as fuel prices fell.</p></article></body></html>", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signal, got := d.Detect([]byte(tt.body))
			if got != tt.want {
				t.Fatalf("expected %v got %v (signal %q)", tt.want, got, signal)
			}
			if got && signal == "" {
				t.Fatal("expected a signal label for a detected challenge")
			}
		})
	}
}

func TestChallengeDetectorSignalNames(t *testing.T) {
	d := NewChallengeDetector(0, []string{"just a moment"}, nil)
	signal, ok := d.Detect([]byte("<html><title>Just a Moment...</title></html>"))
	if !ok {
		t.Fatal("expected detection")
	}
	if !strings.Contains(signal, "just a moment") {
		t.Fatalf("signal %q does not name the keyword", signal)
	}
}

func TestChallengeDetectorSizeCheckDisabled(t *testing.T) {
	d := NewChallengeDetector(0, []string{"captcha"}, nil)
	if _, ok := d.Detect([]byte("<p>ok</p>")); ok {
		t.Fatal("short clean body should pass with size check disabled")
	}
}

func TestChallengeDetectorNil(t *testing.T) {
	var d *ChallengeDetector
	if _, ok := d.Detect([]byte("verify you are human")); ok {
		t.Fatal("nil detector must never flag")
	}
}
