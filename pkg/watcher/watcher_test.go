package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAndWatch(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "translations.json")
	updateFile := func(data string) {
		err := os.WriteFile(testFile, []byte(data), os.ModePerm)
		require.NoError(t, err)
	}
	const initialData = `{"en": {"hello": "hello"}}`
	updateFile(initialData)

	loader := &mockLoader{}
	watcher, err := LoadAndWatch(testFile, loader, nil)
	require.NoError(t, err)
	require.Equal(t, initialData, loader.last())

	const updatedData = `{"en": {"hello": "hello"}, "ru": {"hello": "привет"}}`
	time.Sleep(debounceWindow) // updates right after load should not be dropped
	updateFile(updatedData)
	require.Eventually(t, func() bool {
		return loader.last() == updatedData
	}, 2*time.Second, 10*time.Millisecond, "watcher should reload the file")

	err = watcher.Close()
	require.NoError(t, err)
	const finalData = `{"en": {"hello": "hello"}, "ru": {"hello": "привет"}, "de": {"hello": "hallo"}}`
	updateFile(finalData)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, updatedData, loader.last(), "watcher is closed, so no reload")
}

func TestLoadAndWatchMissingFile(t *testing.T) {
	loader := &mockLoader{}
	_, err := LoadAndWatch(filepath.Join(t.TempDir(), "nope.json"), loader, nil)
	require.Error(t, err)
}

type mockLoader struct {
	mu         sync.Mutex
	lastLoaded string
}

func (m *mockLoader) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.lastLoaded = string(data)
	m.mu.Unlock()
	return nil
}

func (m *mockLoader) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLoaded
}
