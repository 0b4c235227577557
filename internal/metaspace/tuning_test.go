package metaspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTunables(t *testing.T) {
	withTestSettings(t, 8, false)

	err := ApplyTunables([]byte(`
# diagnostic switches
consistency_checks = on
verify_uncommitted = true
`))
	require.NoError(t, err)
	assert.True(t, ConsistencyChecksEnabled())
	assert.True(t, VerifyUncommittedEnabled())

	err = ApplyTunables([]byte("consistency_checks=0\nverify_uncommitted=off\n"))
	require.NoError(t, err)
	assert.False(t, ConsistencyChecksEnabled())
	assert.False(t, VerifyUncommittedEnabled())
}

func TestApplyTunablesRejectsUnknownKey(t *testing.T) {
	withTestSettings(t, 8, false)

	err := ApplyTunables([]byte("consistensy_checks = on\n"))
	assert.ErrorContains(t, err, "unknown key")
}

func TestApplyTunablesRejectsBadValue(t *testing.T) {
	withTestSettings(t, 8, false)

	err := ApplyTunables([]byte("consistency_checks = maybe\n"))
	assert.ErrorContains(t, err, "invalid switch value")
}

func TestApplyTunablesRejectsMissingEquals(t *testing.T) {
	withTestSettings(t, 8, false)

	err := ApplyTunables([]byte("consistency_checks on\n"))
	assert.ErrorContains(t, err, "missing '='")
}

func TestWatchTunablesAppliesInitialFile(t *testing.T) {
	withTestSettings(t, 8, false)

	path := filepath.Join(t.TempDir(), "tunables.conf")
	require.NoError(t, os.WriteFile(path, []byte("consistency_checks = on\n"), 0o644))

	tw, err := WatchTunables(path)
	require.NoError(t, err)
	defer tw.Close()

	assert.True(t, ConsistencyChecksEnabled())
}

func TestWatchTunablesPicksUpChanges(t *testing.T) {
	withTestSettings(t, 8, false)

	path := filepath.Join(t.TempDir(), "tunables.conf")

	// Missing file is fine; defaults stay in effect until it appears.
	tw, err := WatchTunables(path)
	require.NoError(t, err)
	defer tw.Close()

	require.False(t, ConsistencyChecksEnabled())
	require.NoError(t, os.WriteFile(path, []byte("consistency_checks = on\n"), 0o644))

	assert.Eventually(t, ConsistencyChecksEnabled, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("consistency_checks = off\n"), 0o644))
	assert.Eventually(t, func() bool { return !ConsistencyChecksEnabled() }, 5*time.Second, 10*time.Millisecond)
}

func TestWatchTunablesReportsParseErrors(t *testing.T) {
	withTestSettings(t, 8, false)

	path := filepath.Join(t.TempDir(), "tunables.conf")
	tw, err := WatchTunables(path)
	require.NoError(t, err)
	defer tw.Close()

	require.NoError(t, os.WriteFile(path, []byte("bogus = on\n"), 0o644))

	select {
	case err := <-tw.Errors():
		assert.ErrorContains(t, err, "unknown key")
	case <-time.After(5 * time.Second):
		t.Fatal("no parse error reported")
	}
}
