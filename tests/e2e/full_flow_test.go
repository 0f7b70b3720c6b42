package e2e

import (
	"os"
	"testing"
)

// TestFullLoginFlow is the end-to-end slot for the full flow: account
// service login, ticket redemption against the game server, and the
// steady-state tick stream. Its body checks nothing: it skips in short
// mode, without DB_ADDR, and otherwise always, since nothing here boots
// PostgreSQL, accountd and realmd together.
func TestFullLoginFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e tests in short mode")
	}

	if os.Getenv("DB_ADDR") == "" {
		t.Skip("DB_ADDR not set, skipping e2e tests")
	}

	// accountd and realmd are implemented and unit/integration tested in
	// their own packages (internal/account, internal/client,
	// internal/tickserver); this harness still needs multi-process
	// orchestration to boot both services plus Postgres before it can
	// drive a real client through the whole flow.
	t.Skip("e2e harness not implemented: requires multi-process orchestration for accountd + realmd")
}
