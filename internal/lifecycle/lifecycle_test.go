package lifecycle

import "testing"

func TestSetShuttingDown(t *testing.T) {
	t.Cleanup(func() { SetShuttingDown(false) })

	steps := []struct {
		set  bool
		want bool
	}{
		{false, false},
		{true, true},
		{true, true},
		{false, false},
	}
	for i, s := range steps {
		SetShuttingDown(s.set)
		if got := IsShuttingDown(); got != s.want {
			t.Errorf("step %d: IsShuttingDown() = %v after SetShuttingDown(%v), want %v", i, got, s.set, s.want)
		}
	}
}
