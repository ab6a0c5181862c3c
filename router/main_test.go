package router

import (
	"testing"

	"go.uber.org/goleak"
)

// Fan-out and websocket posts run in goroutines; every test must join them.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
