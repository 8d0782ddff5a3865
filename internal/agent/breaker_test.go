package agent

import "testing"

func TestBreakerDecide(t *testing.T) {
	cfg := DefaultBreakerConfig()

	tests := []struct {
		name string
		view BreakerView
		f    ClassifiedFailure
		want Decision
	}{
		{
			name: "first transient retries",
			view: BreakerView{Consecutive: 1},
			f:    ClassifiedFailure{Class: FailTransient},
			want: DecisionRetry,
		},
		{
			name: "third transient still retries",
			view: BreakerView{Consecutive: 3},
			f:    ClassifiedFailure{Class: FailTransient},
			want: DecisionRetry,
		},
		{
			name: "fourth consecutive failure escalates",
			view: BreakerView{Consecutive: 4},
			f:    ClassifiedFailure{Class: FailTransient},
			want: DecisionEscalate,
		},
		{
			name: "rate limited follows the same threshold",
			view: BreakerView{Consecutive: 2},
			f:    ClassifiedFailure{Class: FailRateLimited},
			want: DecisionRetry,
		},
		{
			name: "auth escalates immediately",
			view: BreakerView{Consecutive: 1},
			f:    ClassifiedFailure{Class: FailAuth},
			want: DecisionEscalate,
		},
		{
			name: "missing capability acquires on first sight",
			view: BreakerView{Consecutive: 1, AcquisitionAttempts: 0},
			f:    ClassifiedFailure{Class: FailMissingCapability},
			want: DecisionAcquire,
		},
		{
			name: "missing capability escalates after one acquisition",
			view: BreakerView{Consecutive: 2, AcquisitionAttempts: 1},
			f:    ClassifiedFailure{Class: FailMissingCapability},
			want: DecisionEscalate,
		},
		{
			name: "first unknown retries once",
			view: BreakerView{Consecutive: 1, TotalByClass: map[FailureClass]int{FailUnknown: 1}},
			f:    ClassifiedFailure{Class: FailUnknown},
			want: DecisionRetry,
		},
		{
			name: "second unknown escalates",
			view: BreakerView{Consecutive: 2, TotalByClass: map[FailureClass]int{FailUnknown: 2}},
			f:    ClassifiedFailure{Class: FailUnknown},
			want: DecisionEscalate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Decide(tt.view, tt.f); got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBreakerThresholdsAreConfig(t *testing.T) {
	cfg := BreakerConfig{MaxConsecutiveFailures: 1, UnknownRetryLimit: 0, MaxAcquisitionsPerName: 2}

	if got := cfg.Decide(BreakerView{Consecutive: 2}, ClassifiedFailure{Class: FailTransient}); got != DecisionEscalate {
		t.Errorf("tightened transient threshold not honored, got %s", got)
	}
	if got := cfg.Decide(BreakerView{TotalByClass: map[FailureClass]int{FailUnknown: 1}}, ClassifiedFailure{Class: FailUnknown}); got != DecisionEscalate {
		t.Errorf("tightened unknown threshold not honored, got %s", got)
	}
	if got := cfg.Decide(BreakerView{AcquisitionAttempts: 1}, ClassifiedFailure{Class: FailMissingCapability}); got != DecisionAcquire {
		t.Errorf("raised acquisition bound not honored, got %s", got)
	}
}
