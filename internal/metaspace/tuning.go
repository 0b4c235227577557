package metaspace

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Runtime-adjustable diagnostic switches. A tunables file holds key=value
// lines; unknown keys are rejected so typos do not silently disable a check.
//
//	consistency_checks = on|off
//	verify_uncommitted = on|off

// ApplyTunables parses tunables from data and applies them to the process
// settings. Lines starting with '#' and blank lines are ignored. The first
// invalid line aborts with an error; settings changed by earlier lines stay
// applied.
func ApplyTunables(data []byte) error {
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	lineNo := 0

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("tunables line %d: missing '=' in %q", lineNo, line)
		}
		key = strings.TrimSpace(key)

		enabled, err := parseSwitch(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("tunables line %d: %v", lineNo, err)
		}

		switch key {
		case "consistency_checks":
			SetConsistencyChecks(enabled)
		case "verify_uncommitted":
			SetVerifyUncommitted(enabled)
		default:
			return fmt.Errorf("tunables line %d: unknown key %q", lineNo, key)
		}
	}

	return sc.Err()
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid switch value %q (want on or off)", s)
	}
}

// TuningWatcher applies a tunables file on every change, so diagnostic
// checks can be toggled in a running process without a restart.
type TuningWatcher struct {
	w    *fsnotify.Watcher
	path string
	erC  chan error
	done chan struct{}
}

// WatchTunables applies the file at path once (a missing file is not an
// error; the defaults stay) and then watches it for changes.
func WatchTunables(path string) (*TuningWatcher, error) {
	if data, err := os.ReadFile(path); err == nil {
		if err := ApplyTunables(data); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: the file may not exist yet, and
	// editors typically replace it by rename, which drops a file watch.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	tw := &TuningWatcher{w: w, path: path, erC: make(chan error, 1), done: make(chan struct{})}
	go tw.loop()

	return tw, nil
}

func (tw *TuningWatcher) loop() {
	defer close(tw.done)

	for {
		select {
		case ev, ok := <-tw.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(ev.Name) != filepath.Clean(tw.path) {
				continue
			}
			data, err := os.ReadFile(tw.path)
			if err != nil {
				tw.reportError(err)
				continue
			}
			if err := ApplyTunables(data); err != nil {
				tw.reportError(err)
			}
		case err, ok := <-tw.w.Errors:
			if !ok {
				return
			}
			tw.reportError(err)
		}
	}
}

func (tw *TuningWatcher) reportError(err error) {
	select {
	case tw.erC <- err:
	default:
	}
}

// Errors returns a channel carrying the most recent watch or parse error.
func (tw *TuningWatcher) Errors() <-chan error { return tw.erC }

// Close stops watching.
func (tw *TuningWatcher) Close() error {
	err := tw.w.Close()
	<-tw.done

	return err
}
