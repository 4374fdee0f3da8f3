package speechtotext

import "testing"

func TestNewPassiveResultMapsEveryStatus(t *testing.T) {
	tests := []struct {
		status PassiveStatus
		want   PassiveResult
	}{
		{status: PassiveStatusSuccess, want: PassiveSuccess{Text: "hello"}},
		{status: PassiveStatusWaiting, want: PassiveWaiting{}},
		{status: PassiveStatusTimeout, want: PassiveTimeout{}},
		{status: PassiveStatusTooShort, want: PassiveTooShort{}},
		{status: PassiveStatusNoSpeech, want: PassiveNoSpeech{}},
		{status: PassiveStatusError, want: PassiveError{Detail: "mic unplugged"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got, ok := NewPassiveResult(tt.status, "hello", "mic unplugged")
			if !ok {
				t.Fatalf("expected status %q to be known", tt.status)
			}
			if got != tt.want {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
			if got.Status() != tt.status {
				t.Fatalf("expected status %q, got %q", tt.status, got.Status())
			}
		})
	}
}

func TestNewPassiveResultRejectsUnknownStatus(t *testing.T) {
	if _, ok := NewPassiveResult("listening", "", ""); ok {
		t.Fatalf("expected unknown status to be rejected")
	}
}

func TestPassiveSuccessHasSpeech(t *testing.T) {
	if (PassiveSuccess{Text: "  \n"}).HasSpeech() {
		t.Fatalf("expected whitespace transcript to have no speech")
	}
	if !(PassiveSuccess{Text: "hi"}).HasSpeech() {
		t.Fatalf("expected transcript to have speech")
	}
	if !(ManualCapture{Text: " "}).IsEmpty() {
		t.Fatalf("expected whitespace manual capture to be empty")
	}
}
