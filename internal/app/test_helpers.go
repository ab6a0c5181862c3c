package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/blockgrid/internal/storage"
)

// SafeBuffer collects log and progress output written from several goroutines.
type SafeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *SafeBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *SafeBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// WriteProjectFixture stores doc as project.json in dir and returns a store
// rooted there, so tests can add block folders or env files next to it.
func WriteProjectFixture(t *testing.T, dir, doc string) *storage.Disk {
	t.Helper()
	disk := storage.NewDisk(dir)
	if err := disk.WriteFile("project.json", []byte(doc)); err != nil {
		t.Fatalf("write project fixture: %v", err)
	}
	return disk
}

// SetupAppTest builds an App at debug level whose output lands in the
// returned buffer. Set BLOCKGRID_TEST_LOGS=true to dump it after each test.
func SetupAppTest(t *testing.T, cfg *Config) (*App, *SafeBuffer) {
	t.Helper()

	out := &SafeBuffer{}
	cfg.LogLevel = "debug"
	a := NewApp(out, cfg)

	t.Cleanup(func() {
		if os.Getenv("BLOCKGRID_TEST_LOGS") == "true" {
			t.Logf("output of %s:\n%s", t.Name(), out.String())
		}
	})
	return a, out
}
