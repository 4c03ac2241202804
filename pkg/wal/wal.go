package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileModePrivate rw------- (只有擁有者可讀寫) - 帳本資料
const FileModePrivate fs.FileMode = 0600

// logFile WAL 用到的檔案操作，*os.File 滿足此介面
type logFile interface {
	io.ReadWriteSeeker
	Sync() error
	Truncate(size int64) error
	Close() error
}

// WAL 以 JSON Lines 格式追加寫入的 Write-Ahead Log
// 每筆資料一行，寫入後立即 fsync
// 寫入或 fsync 失敗時檔案會截回寫入前的大小，失敗的紀錄不會在重放時出現
type WAL struct {
	file logFile
	path string
	mu   sync.Mutex
	// 已寫入筆數 (含開檔時既有的資料)
	records uint64
}

// Open 開啟或建立一個 WAL 檔案
// O_RDWR 讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, fmt.Errorf("open wal %s: %w", path, err)
	}
	return &WAL{file: file, path: path}, nil
}

// Path 檔案路徑
func (w *WAL) Path() string {
	return w.path
}

// Records 已寫入與已讀取的筆數
func (w *WAL) Records() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.records
}

// Write 寫入一筆資料並刷入硬碟
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	size, err := w.file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(line); err != nil {
		return w.rollback(size, err)
	}
	if err := w.file.Sync(); err != nil {
		return w.rollback(size, err)
	}
	w.records++
	return nil
}

// rollback 截掉寫到一半或沒有 fsync 成功的紀錄
func (w *WAL) rollback(size int64, cause error) error {
	if err := w.file.Truncate(size); err != nil {
		return errors.Join(cause, fmt.Errorf("truncate wal to %d: %w", size, err))
	}
	if _, err := w.file.Seek(size, io.SeekStart); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadAll 從頭依序讀取所有資料
// callback 每次收到一筆原始 JSON，避免一次將所有資料載入記憶體
// 最後一行若因當機只寫了一半，視為未寫入並停止讀取
func (w *WAL) ReadAll(callback func(raw json.RawMessage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	w.records = 0
	decoder := json.NewDecoder(w.file)
	var offset int64
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return w.truncateTail(offset)
			}
			return fmt.Errorf("decode wal record %d: %w", w.records+1, err)
		}
		if err := callback(raw); err != nil {
			return err
		}
		offset = decoder.InputOffset()
		w.records++
	}
}

// truncateTail 截掉殘缺的尾巴並保留最後一筆完整紀錄的換行，之後的追加從新的一行開始
// offset 為最後一筆完整紀錄的結尾 (不含換行)
func (w *WAL) truncateTail(offset int64) error {
	if err := w.file.Truncate(offset); err != nil {
		return err
	}
	if _, err := w.file.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	if offset == 0 {
		return nil
	}
	if _, err := w.file.Write([]byte{'\n'}); err != nil {
		return err
	}
	return w.file.Sync()
}
