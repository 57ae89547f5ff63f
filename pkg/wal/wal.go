package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gowebpki/jcs"
)

// rw-r--r-- (擁有者讀寫，其他人唯讀)
const FileModeDefault fs.FileMode = 0644

// WAL 是 append-only 的 JSON Lines 檔案，每筆資料以 RFC 8785 正規化後寫入
type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_RDWR讀寫模式
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string) (*WAL, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create wal directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeDefault)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write 寫入一筆資料並刷入硬碟，回傳後即可視為持久化
func (w *WAL) Write(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line, err := jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("canonicalize wal entry: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(line); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close 關閉檔案
func (w *WAL) Close() error {
	return w.file.Close()
}

// ReadAll 讀取所有資料
// callback 是一個函式，接收一筆原始 JSON
// 這樣可以避免一次將所有資料載入記憶體
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// 確保從頭讀取 (寫入因 O_APPEND 不受 offset 影響)
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	var good int64
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// 寫入途中當機留下的半行視為未寫入，截掉以免之後的追加接在殘行後面
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return w.truncate(good)
			}
			return fmt.Errorf("decode wal entry: %w", err)
		}
		if err := callback(raw); err != nil {
			return err
		}
		good = decoder.InputOffset()
	}
	return nil
}

func (w *WAL) truncate(size int64) error {
	if err := w.file.Truncate(size); err != nil {
		return fmt.Errorf("truncate torn wal tail: %w", err)
	}
	if size == 0 {
		return w.file.Sync()
	}
	// InputOffset 停在最後一筆的 '}'，補回換行
	if _, err := w.file.Write([]byte("\n")); err != nil {
		return fmt.Errorf("truncate torn wal tail: %w", err)
	}
	return w.file.Sync()
}
