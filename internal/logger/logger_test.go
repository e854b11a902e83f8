package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	originalLevel := currentLevel.Load()
	originalFormat := currentFormat.Load()
	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentLevel.Store(originalLevel)
		currentFormat.Store(originalFormat)
		reconfigure()
	}

	return buf, cleanup
}

func TestLevelFiltering(t *testing.T) {
	cases := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tc.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tc.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tc.hidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("debug")
		assert.Equal(t, LevelDebug, GetLevel())

		SetLevel("Warning")
		assert.Equal(t, LevelWarn, GetLevel())
	})

	t.Run("IgnoresInvalidValues", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		SetLevel("WARN")
		SetLevel("VERBOSE")
		assert.Equal(t, LevelWarn, GetLevel())
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

func TestTextFormat(t *testing.T) {
	t.Run("StructuredFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		Info("preload finished", KeyResource, "products", KeyItems, 42)

		out := buf.String()
		assert.Contains(t, out, "[INFO] preload finished")
		assert.Contains(t, out, "resource=products")
		assert.Contains(t, out, "items=42")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		Info("fetch failed", KeyError, "connection refused by peer")

		assert.Contains(t, buf.String(), `error="connection refused by peer"`)
	})

	t.Run("GroupsAndWithAttrs", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		With("component", "scheduler").WithGroup("batch").Info("done", "size", 3)

		out := buf.String()
		assert.Contains(t, out, "component=scheduler")
		assert.Contains(t, out, "batch.size=3")
	})

	t.Run("DropsEmptyAttr", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		Info("ok", Err(nil))

		assert.NotContains(t, buf.String(), "error=")
	})
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("json")

	Info("cache cleared", KeyCacheSize, 0)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "cache cleared", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, float64(0), entry[KeyCacheSize])
	assert.Contains(t, entry, "time")
}

func TestSetFormatIgnoresInvalid(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	SetFormat("text")
	SetFormat("xml")
	Info("still text")

	assert.True(t, strings.HasPrefix(buf.String(), "["))
}

func TestContextLogging(t *testing.T) {
	t.Run("InjectsLogContextFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("DEBUG")

		lc := NewLogContext("categories").WithFetch("tok-1", "high").WithTrace("trace-abc", "span-def")
		ctx := WithContext(context.Background(), lc)

		DebugCtx(ctx, "fetch started")

		out := buf.String()
		assert.Contains(t, out, "trace_id=trace-abc")
		assert.Contains(t, out, "span_id=span-def")
		assert.Contains(t, out, "resource=categories")
		assert.Contains(t, out, "priority=high")
		assert.Contains(t, out, "fetch_id=tok-1")
	})

	t.Run("ContextFieldsComeFirst", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		ctx := WithContext(context.Background(), NewLogContext("products"))
		InfoCtx(ctx, "loaded", KeyItems, 5)

		out := buf.String()
		assert.Less(t, strings.Index(out, "resource="), strings.Index(out, "items="))
	})

	t.Run("ContextWithoutLogContext", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetLevel("INFO")

		WarnCtx(context.Background(), "plain")
		ErrorCtx(context.Background(), "also plain")

		assert.Contains(t, buf.String(), "plain")
		assert.NotContains(t, buf.String(), "resource=")
	})

	t.Run("NilContext", func(t *testing.T) {
		//nolint:staticcheck // nil context is what we are testing
		assert.Nil(t, FromContext(nil))
	})
}

func TestLogContext(t *testing.T) {
	lc := NewLogContext("dashboard")
	assert.Equal(t, "dashboard", lc.Resource)
	assert.False(t, lc.StartTime.IsZero())

	clone := lc.WithFetch("id", "low")
	assert.Equal(t, "id", clone.FetchID)
	assert.Empty(t, lc.FetchID, "original must not change")

	var nilCtx *LogContext
	assert.Nil(t, nilCtx.Clone())
	assert.Equal(t, 0.0, nilCtx.DurationMs())

	lc.StartTime = time.Now().Add(-50 * time.Millisecond)
	assert.GreaterOrEqual(t, lc.DurationMs(), 50.0)
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, slog.Attr{}, Err(nil))
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	assert.Equal(t, KeyResource, Resource("x").Key)
	assert.Equal(t, int64(503), HTTPStatus(503).Value.Int64())
	assert.Equal(t, time.Minute, Interval(time.Minute).Value.Duration())
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()
	SetLevel("INFO")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				Info("tick", "worker", n, "iteration", j)
			}
		}(i)
		go func() {
			defer wg.Done()
			SetLevel("INFO")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
}

func TestInit(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		path := filepath.Join(t.TempDir(), "preloadd.log")
		require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))

		Info("written to file")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "written to file")

		mu.Lock()
		if closer != nil {
			_ = closer.Close()
			closer = nil
		}
		mu.Unlock()
	})

	t.Run("InvalidPath", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
		assert.Error(t, err)
	})

	t.Run("InitWithWriter", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		var buf bytes.Buffer
		InitWithWriter(&buf, "DEBUG", "text", false)
		Debug("hello")
		assert.Contains(t, buf.String(), "hello")
	})
}
