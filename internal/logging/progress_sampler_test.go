package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	type step struct {
		percent float64
		stage   string
		want    bool
	}
	tests := []struct {
		name   string
		bucket float64
		steps  []step
	}{
		{
			name:   "five percent buckets",
			bucket: 0,
			steps: []step{
				{0, "synthesize", true},
				{3, "synthesize", false},
				{5, "synthesize", true},
				{7, "synthesize", false},
				{100, "synthesize", true},
				{105, "synthesize", false},
			},
		},
		{
			name:   "stage change resets bucket",
			bucket: 25,
			steps: []step{
				{50, "synthesize", true},
				{0, " render ", true},
				{20, "render", false},
				{25, "render", true},
			},
		},
		{
			name:   "unknown percent only logs stage changes",
			bucket: 10,
			steps: []step{
				{-1, "plan", true},
				{-1, "plan", false},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewProgressSampler(tc.bucket)
			for i, st := range tc.steps {
				if got := s.ShouldLog(st.percent, st.stage); got != st.want {
					t.Fatalf("step %d (%v%% %q): got %v want %v", i, st.percent, st.stage, got, st.want)
				}
			}
		})
	}
}

func TestProgressSamplerCountsAndReset(t *testing.T) {
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLogCount(1, 2, "synthesize") {
		t.Fatal("nil sampler should always log")
	}
	nilSampler.Reset()

	s := NewProgressSampler(50)
	if !s.ShouldLogCount(0, 4, "synthesize") {
		t.Fatal("first count should log")
	}
	if s.ShouldLogCount(1, 4, "synthesize") {
		t.Fatal("25% should stay in first bucket")
	}
	if !s.ShouldLogCount(2, 4, "synthesize") {
		t.Fatal("50% should log")
	}
	s.Reset()
	if s.lastStage != "" || s.lastBucket != -1 {
		t.Fatalf("reset left state: %+v", s)
	}
	if got := Percent(3, 0); got != 0 {
		t.Fatalf("Percent with zero total = %v", got)
	}
	if got := Percent(5, 4); got != 100 {
		t.Fatalf("Percent clamps, got %v", got)
	}
}
