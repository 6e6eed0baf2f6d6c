// internal/testutil/templates.go
package testutil

import (
	"sync"
	"testing"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"

	"github.com/floatchat/floatchatweb/internal/app/resources"
)

var (
	templatesOnce sync.Once
	templatesErr  error
)

// BootTemplates makes templates.Render work in handler tests, booting the
// engine once per test binary the same way bootstrap.BuildHandler does.
// Feature template sets register themselves in init, so by the time any
// test runs they are all visible to the engine.
func BootTemplates(t *testing.T) {
	t.Helper()
	templatesOnce.Do(func() {
		resources.LoadSharedTemplates()
		eng := templates.New(false)
		if err := eng.Boot(zap.NewNop()); err != nil {
			templatesErr = err
			return
		}
		templates.UseEngine(eng, zap.NewNop())
	})
	if templatesErr != nil {
		t.Fatalf("template engine boot failed: %v", templatesErr)
	}
}
