package batch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/tychomodel/core/cache"
	tyerrors "github.com/FocuswithJustin/tychomodel/core/errors"
	"github.com/FocuswithJustin/tychomodel/internal/logging"
)

const goodModel = "TYCHO 8.00 Ea 1.50 3 0.02\nkk   3\ntime   %d.0\n\nradius\n 1.0  2.0  3.0\n 4.0\n"

func writeModels(t *testing.T, n int) []string {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, n)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("Ea%05d", i))
		require.NoError(t, os.WriteFile(paths[i], []byte(fmt.Sprintf(goodModel, i)), 0o600))
	}
	return paths
}

func TestDecodeKeepsInputOrder(t *testing.T) {
	paths := writeModels(t, 20)

	report := Decode(context.Background(), paths, Options{Workers: 4})
	require.NotEmpty(t, report.RunID)
	require.Len(t, report.Results, 20)
	require.Zero(t, report.Failed)
	require.NoError(t, report.Err())

	for i, res := range report.Results {
		require.Equal(t, i, res.Index)
		require.Equal(t, paths[i], res.Path)
		require.NoError(t, res.Err)
		require.Equal(t, paths[i], res.Model.Filename)

		v, ok := res.Model.Header.Name("time")
		require.True(t, ok)
		n, _ := v.Number()
		require.Equal(t, float64(i), n)
	}
	require.Len(t, report.Models(), 20)
}

func TestDecodeIsolatesFailures(t *testing.T) {
	paths := writeModels(t, 3)
	dir := filepath.Dir(paths[0])

	bad := filepath.Join(dir, "broken")
	require.NoError(t, os.WriteFile(bad, []byte("radius\n"), 0o600))
	missing := filepath.Join(dir, "missing")

	all := []string{paths[0], bad, paths[1], missing, paths[2]}
	report := Decode(context.Background(), all, Options{})

	require.Equal(t, 2, report.Failed)
	require.ErrorIs(t, report.Results[1].Err, tyerrors.ErrSequence)
	require.ErrorIs(t, report.Results[3].Err, tyerrors.ErrIO)
	require.ErrorIs(t, report.Err(), tyerrors.ErrSequence)
	require.Len(t, report.Models(), 3)
}

func TestDecodeUsesCache(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a", "b", "c"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(goodModel, 7)), 0o600))
		paths = append(paths, path)
	}

	mc := cache.NewDefaultModelCache()
	first := Decode(context.Background(), paths[:1], Options{Cache: mc})
	require.Zero(t, first.Cached)

	second := Decode(context.Background(), paths, Options{Workers: 2, Cache: mc})
	require.Equal(t, 3, second.Cached)
	require.NotEqual(t, first.RunID, second.RunID)

	var names []string
	for _, m := range second.Models() {
		names = append(names, m.Filename)
	}
	sort.Strings(names)
	require.Equal(t, paths, names)
}

func TestDecodeCancelled(t *testing.T) {
	paths := writeModels(t, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var logs bytes.Buffer
	logging.InitLoggerTo(&logs, logging.LevelWarn, logging.FormatJSON)
	t.Cleanup(func() { logging.InitLogger(logging.LevelWarn, logging.FormatText) })

	report := Decode(ctx, paths, Options{Workers: 2})
	require.Equal(t, 5, report.Failed)
	for _, res := range report.Results {
		require.ErrorIs(t, res.Err, context.Canceled)
	}

	require.Equal(t, 5, strings.Count(logs.String(), `"msg":"decode_skipped"`))
	require.Contains(t, logs.String(), `"run_id":"`+report.RunID+`"`)
}

func TestDecodeEmpty(t *testing.T) {
	report := Decode(context.Background(), nil, Options{})
	require.Empty(t, report.Results)
	require.NoError(t, report.Err())
}

func TestPoolSizing(t *testing.T) {
	p := newPool[int, int](0, 3)
	if p.numWorkers > 3 {
		t.Errorf("numWorkers = %d; want <= 3", p.numWorkers)
	}

	p = newPool[int, int](8, 0)
	if p.numWorkers != 8 {
		t.Errorf("numWorkers = %d; want 8", p.numWorkers)
	}

	if d := DefaultWorkers(); d < 1 || d > maxWorkers {
		t.Errorf("DefaultWorkers() = %d; want 1..%d", d, maxWorkers)
	}
}

func TestPoolCollectsAllResults(t *testing.T) {
	p := newPool[int, int](4, 100)
	p.start(func(n int) int { return n * 2 })
	for i := 0; i < 100; i++ {
		p.submit(i)
	}
	p.close()

	sum := 0
	count := 0
	for r := range p.resultsChan() {
		sum += r
		count++
	}
	if count != 100 || sum != 9900 {
		t.Errorf("count, sum = %d, %d; want 100, 9900", count, sum)
	}
}
