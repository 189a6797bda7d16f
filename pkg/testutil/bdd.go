package testutil

import "testing"

// Given, When and Then name nested subtests so a scenario reads top to bottom
// in `go test -v` output, e.g. "Given_a_device/When_it_reports/Then_...".
func Given(t *testing.T, situation string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+situation, fn)
}

func When(t *testing.T, action string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+action, fn)
}

func Then(t *testing.T, outcome string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+outcome, fn)
}
