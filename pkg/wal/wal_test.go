package wal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Seq  uint64 `json:"seq"`
	Name string `json:"name"`
}

func TestWAL_WriteAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(record{Seq: 1, Name: "a"}))
	require.NoError(t, w.Write(record{Seq: 2, Name: "b"}))
	require.NoError(t, w.Close())

	w, err = Open(path)
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, path, w.Path())

	var got []record
	err = w.ReadAll(func(raw json.RawMessage) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []record{{1, "a"}, {2, "b"}}, got)
	assert.Equal(t, uint64(2), w.Records())

	// 讀完之後繼續追加
	require.NoError(t, w.Write(record{Seq: 3, Name: "c"}))
	assert.Equal(t, uint64(3), w.Records())
}

func TestWAL_TornTailIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"seq\":1,\"name\":\"a\"}\n{\"seq\":2,\"na"), FileModePrivate))

	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	count := 0
	require.NoError(t, w.ReadAll(func(json.RawMessage) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)

	// 殘缺的尾巴已被截掉，新資料從新的一行開始
	require.NoError(t, w.Write(record{Seq: 2, Name: "b"}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"seq\":1,\"name\":\"a\"}\n{\"seq\":2,\"name\":\"b\"}\n", string(data))

	count = 0
	require.NoError(t, w.ReadAll(func(json.RawMessage) error {
		count++
		return nil
	}))
	assert.Equal(t, 2, count)
}

func TestWAL_CallbackErrorStopsReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	w, err := Open(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(record{Seq: 1}))
	require.NoError(t, w.Write(record{Seq: 2}))

	boom := assert.AnError
	calls := 0
	err = w.ReadAll(func(json.RawMessage) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

// faultyFile 模擬磁碟錯誤：Write 只寫一半、Sync 失敗
type faultyFile struct {
	*os.File
	failWrite bool
	failSync  bool
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.failWrite {
		n, _ := f.File.Write(p[:len(p)/2])
		return n, errors.New("no space left on device")
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.failSync {
		return errors.New("input/output error")
	}
	return f.File.Sync()
}

func TestWAL_FailedWriteIsRolledBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	require.NoError(t, err)
	faulty := &faultyFile{File: file}
	w := &WAL{file: faulty, path: path}

	require.NoError(t, w.Write(record{Seq: 1, Name: "a"}))

	faulty.failWrite = true
	assert.Error(t, w.Write(record{Seq: 2, Name: "partial"}))
	faulty.failWrite = false

	faulty.failSync = true
	assert.Error(t, w.Write(record{Seq: 3, Name: "unsynced"}))
	faulty.failSync = false

	require.NoError(t, w.Write(record{Seq: 4, Name: "d"}))
	assert.Equal(t, uint64(2), w.Records())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), line)
	}

	w, err = Open(path)
	require.NoError(t, err)
	defer w.Close()

	var got []record
	require.NoError(t, w.ReadAll(func(raw json.RawMessage) error {
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		got = append(got, r)
		return nil
	}))
	assert.Equal(t, []record{{1, "a"}, {4, "d"}}, got)
}
