// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/heifconv/internal/archive"
	"github.com/pdiddy/heifconv/internal/handle"
	"github.com/pdiddy/heifconv/pkg/types"
)

func testController(t *testing.T, c *selectiveCodec) (*Controller, *handle.Manager) {
	t.Helper()
	p := types.DefaultPolicy()
	p.MaxFileSize = 4 << 20
	m := handle.NewManager()
	return NewController(p, c, archive.NewZipBundler(), m, nil, discard(), nil), m
}

func TestAddFiles_ValidAndInvalid(t *testing.T) {
	c := &selectiveCodec{outputs: map[string][]byte{"good": []byte("thumb")}}
	ctrl, _ := testController(t, c)

	ctrl.AddFiles(context.Background(), []types.CandidateFile{
		{Name: "good.heic", MediaType: "image/heic", Data: []byte("good")},
		{Name: "notes.txt", MediaType: "text/plain", Data: []byte("text")},
	})

	// Only the valid file is accepted; the error names the rejected one
	// and the batch proceeds with one item.
	items := ctrl.AcceptedItems()
	require.Len(t, items, 1)
	assert.Equal(t, "good.heic", items[0].File.Name)
	assert.True(t, items[0].HasThumbnail())
	assert.Contains(t, ctrl.LastError(), "notes.txt")
	assert.Equal(t, StateReady, ctrl.State())
}

func TestAddFiles_Accumulates(t *testing.T) {
	c := &selectiveCodec{outputs: map[string][]byte{
		"one": []byte("t1"), "two": []byte("t2"),
	}}
	ctrl, _ := testController(t, c)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{{Name: "one.heic", MediaType: "image/heic", Data: []byte("one")}})
	ctrl.AddFiles(ctx, []types.CandidateFile{{Name: "two.heic", MediaType: "image/heic", Data: []byte("two")}})

	// Adding appends; it never replaces previously accepted files.
	items := ctrl.AcceptedItems()
	require.Len(t, items, 2)
	assert.Equal(t, "one.heic", items[0].File.Name)
	assert.Equal(t, "two.heic", items[1].File.Name)
}

func TestAddFiles_AllRejectedStaysPut(t *testing.T) {
	ctrl, m := testController(t, &selectiveCodec{})

	ctrl.AddFiles(context.Background(), []types.CandidateFile{
		{Name: "a.txt", MediaType: "text/plain", Data: []byte("a")},
	})

	assert.Equal(t, StateIdle, ctrl.State())
	assert.Empty(t, ctrl.AcceptedItems())
	assert.Contains(t, ctrl.LastError(), "a.txt")
	assert.Equal(t, 0, m.Created())
}

func TestConvert_NoopWhenEmpty(t *testing.T) {
	ctrl, _ := testController(t, &selectiveCodec{})
	ctrl.Convert(context.Background())
	assert.Equal(t, StateIdle, ctrl.State())
	assert.Empty(t, ctrl.ConvertedItems())
}

func TestConvert_PartialFailure(t *testing.T) {
	c := &selectiveCodec{
		outputs: map[string][]byte{
			"a": []byte("ta"), "b": []byte("tb"), "c": []byte("tc"),
		},
	}
	ctrl, _ := testController(t, c)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{
		{Name: "a.heic", MediaType: "image/heic", Data: []byte("a")},
		{Name: "b.heic", MediaType: "image/heic", Data: []byte("b")},
		{Name: "c.heic", MediaType: "image/heic", Data: []byte("c")},
	})
	require.Len(t, ctrl.AcceptedItems(), 3)

	// Full-quality encodes reuse the same keyed fake; fail "b" only now
	// that thumbnails are done.
	c.mu.Lock()
	c.errs = map[string]error{"b": errors.New("decode error")}
	c.mu.Unlock()

	ctrl.Convert(ctx)

	// N accepted, K failed: converted count is N-K and the message names
	// a failing file.
	converted := ctrl.ConvertedItems()
	require.Len(t, converted, 2)
	assert.Contains(t, ctrl.LastError(), "b.heic")
	assert.Equal(t, StateConverted, ctrl.State())
}

func TestConvert_RepeatedRunsDoNotLeak(t *testing.T) {
	c := &selectiveCodec{outputs: map[string][]byte{"a": []byte("out")}}
	ctrl, m := testController(t, c)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{{Name: "a.heic", MediaType: "image/heic", Data: []byte("a")}})

	ctrl.Convert(ctx)
	ctrl.Convert(ctx)
	ctrl.Convert(ctx)

	// Each run revokes the previous run's handles before starting: one
	// thumbnail plus one live output, everything else paired off.
	require.Len(t, ctrl.ConvertedItems(), 1)
	assert.Equal(t, 2, m.Outstanding())
	assert.Equal(t, m.Created()-m.Revoked(), m.Outstanding())
}

func TestDownloadAll_EmptyIsRejected(t *testing.T) {
	ctrl, _ := testController(t, &selectiveCodec{})
	_, err := ctrl.DownloadAll()
	assert.ErrorIs(t, err, archive.ErrNothingToBundle)
}

// failingArchiver simulates an archive-writer capability failure.
type failingArchiver struct{}

func (failingArchiver) Bundle([]types.ConvertedItem) ([]byte, error) {
	return nil, &archive.ArchiveError{Err: errors.New("writer exploded")}
}

func TestDownloadAll_FailureIsBatchLevel(t *testing.T) {
	c := &selectiveCodec{outputs: map[string][]byte{"a": []byte("out")}}
	p := types.DefaultPolicy()
	m := handle.NewManager()
	ctrl := NewController(p, c, failingArchiver{}, m, nil, discard(), nil)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{{Name: "a.heic", MediaType: "image/heic", Data: []byte("a")}})
	ctrl.Convert(ctx)

	blob, err := ctrl.DownloadAll()
	require.Error(t, err)
	assert.Nil(t, blob, "no partial archive may be exposed")
	assert.Contains(t, ctrl.LastError(), "writer exploded")
	// The pipeline stays retryable.
	assert.Equal(t, StateConverted, ctrl.State())
}

func TestClear_HandleAccounting(t *testing.T) {
	c := &selectiveCodec{outputs: map[string][]byte{
		"a": []byte("oa"), "b": []byte("ob"),
	}}
	ctrl, m := testController(t, c)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{
		{Name: "a.heic", MediaType: "image/heic", Data: []byte("a")},
		{Name: "b.heic", MediaType: "image/heic", Data: []byte("b")},
	})
	ctrl.Convert(ctx)
	ctrl.Clear()

	// add -> convert -> clear: revokes equal creates by the end.
	assert.Equal(t, m.Created(), m.Revoked())
	assert.Equal(t, 0, m.Outstanding())
	assert.Equal(t, StateIdle, ctrl.State())
	assert.Empty(t, ctrl.AcceptedItems())
	assert.Empty(t, ctrl.ConvertedItems())
	assert.Empty(t, ctrl.LastError())
}

func TestClear_Idempotent(t *testing.T) {
	c := &selectiveCodec{outputs: map[string][]byte{"a": []byte("out")}}
	ctrl, m := testController(t, c)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{{Name: "a.heic", MediaType: "image/heic", Data: []byte("a")}})
	ctrl.Clear()
	created, revoked := m.Created(), m.Revoked()

	// Second clear is a no-op; no handle is revoked twice.
	ctrl.Clear()
	assert.Equal(t, created, m.Created())
	assert.Equal(t, revoked, m.Revoked())
	assert.Equal(t, StateIdle, ctrl.State())
}

func TestErrorState_LastWriteWinsAndCleared(t *testing.T) {
	c := &selectiveCodec{outputs: map[string][]byte{"ok": []byte("t")}}
	ctrl, _ := testController(t, c)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{
		{Name: "one.txt", MediaType: "text/plain", Data: []byte("1")},
		{Name: "two.txt", MediaType: "text/plain", Data: []byte("2")},
	})
	// Two rejections: only the most recent message survives.
	assert.Contains(t, ctrl.LastError(), "two.txt")
	assert.NotContains(t, ctrl.LastError(), "one.txt")

	// The next operation clears the message before doing anything.
	ctrl.AddFiles(ctx, []types.CandidateFile{{Name: "ok.heic", MediaType: "image/heic", Data: []byte("ok")}})
	assert.Empty(t, ctrl.LastError())
}

func TestSaveItem(t *testing.T) {
	c := &selectiveCodec{outputs: map[string][]byte{"a": []byte("jpeg bytes")}}
	ctrl, m := testController(t, c)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{{Name: "a.heic", MediaType: "image/heic", Data: []byte("a")}})
	ctrl.Convert(ctx)
	items := ctrl.ConvertedItems()
	require.Len(t, items, 1)

	before := m.Outstanding()
	var gotName string
	var gotBlob []byte
	err := ctrl.SaveItem(items[0].ID, func(name string, blob []byte) error {
		gotName = name
		gotBlob = blob
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "a.jpg", gotName)
	assert.Equal(t, []byte("jpeg bytes"), gotBlob)
	// The transient save handle is revoked once the sink returns.
	assert.Equal(t, before, m.Outstanding())

	assert.Error(t, ctrl.SaveItem("missing", func(string, []byte) error { return nil }))
}

func TestEndToEnd_SingleFile(t *testing.T) {
	// Add one valid file, pick PNG, convert, download-all: the archive
	// holds exactly one entry with the derived name.
	src := bytes.Repeat([]byte{0xAB}, 2<<20)
	c := &selectiveCodec{outputs: map[string][]byte{string(src): []byte("png bytes")}}

	p := types.DefaultPolicy()
	p.OutputFormat = types.FormatPNG
	m := handle.NewManager()
	ctrl := NewController(p, c, archive.NewZipBundler(), m, nil, discard(), nil)
	ctx := context.Background()

	ctrl.AddFiles(ctx, []types.CandidateFile{{Name: "original.heic", MediaType: "image/heic", Data: src}})
	items := ctrl.AcceptedItems()
	require.Len(t, items, 1)
	assert.True(t, items[0].HasThumbnail())

	ctrl.Convert(ctx)
	converted := ctrl.ConvertedItems()
	require.Len(t, converted, 1)
	assert.Equal(t, "original.png", converted[0].Name)

	blob, err := ctrl.DownloadAll()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "original.png", zr.File[0].Name)

	ctrl.Clear()
	assert.Equal(t, m.Created(), m.Revoked())
}
