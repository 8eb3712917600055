package x11

import (
	"sync"
	"testing"
)

func TestSurfaceMappedSharedAcrossGoroutines(t *testing.T) {
	s := &Surface{}

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.mapped.Store(i%2 == 0)
		}()
		go func() {
			defer wg.Done()
			_ = s.mapped.Load()
		}()
	}
	wg.Wait()

	s.mapped.Store(false)
	if s.mapped.Load() {
		t.Fatalf("surface should report unmapped")
	}
}
