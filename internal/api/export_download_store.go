package api

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const exportDownloadTTL = 10 * time.Minute

type exportDownload struct {
	filePath    string
	filename    string
	contentType string
	expiresAt   time.Time
}

type exportDownloadStore struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]exportDownload
}

func newExportDownloadStore() *exportDownloadStore {
	return &exportDownloadStore{
		now:   time.Now,
		items: make(map[string]exportDownload),
	}
}

func (s *exportDownloadStore) put(filePath, filename, contentType string, ttl time.Duration) (token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeExpiredLocked(now)

	token = uuid.NewString()
	s.items[token] = exportDownload{
		filePath:    filePath,
		filename:    filename,
		contentType: contentType,
		expiresAt:   now.Add(ttl),
	}
	return token
}

// take 取出并作废下载令牌（一次性）
func (s *exportDownloadStore) take(token string) (exportDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(s.now())

	v, ok := s.items[token]
	if !ok {
		return exportDownload{}, false
	}
	delete(s.items, token)
	return v, true
}

// purgeExpiredLocked 清理过期令牌及其临时文件
func (s *exportDownloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			delete(s.items, k)
			_ = os.Remove(v.filePath)
		}
	}
}
