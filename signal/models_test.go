package signal

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusProcessing, true},
		{StatusProcessing, StatusAttached, true},
		{StatusProcessing, StatusError, true},
		{StatusError, StatusProcessing, true},
		{StatusNew, StatusAttached, false},
		{StatusAttached, StatusProcessing, false},
		{StatusAttached, StatusError, false},
		{StatusError, StatusAttached, false},
		{StatusProcessing, StatusNew, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
