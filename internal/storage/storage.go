package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/BlogCrosspost/internal/collector"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Source 一个登记过的远端站点，预热任务会定期刷新它的缓存
type Source struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	URL    string `gorm:"size:1024;uniqueIndex" json:"url"`
	Name   string `gorm:"size:128" json:"name"`
	Status string `gorm:"size:32;index" json:"status"` // active / disabled

	LastFetchedAt *time.Time `json:"lastFetchedAt,omitempty"`
	LastError     string     `gorm:"size:1024" json:"lastError,omitempty"`
	// 最近一次拉取的摘要：文章数、最新一篇的 id 和标题
	ExtraData datatypes.JSONMap `gorm:"type:jsonb" json:"extraData"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

type Store struct {
	DB *gorm.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Source{}); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// EnsureSource 确保站点存在；已存在时只在 name 非空时更新名称
func (s *Store) EnsureSource(url, name string) (*Source, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("storage: empty source url")
	}

	src := &Source{}
	err := s.DB.Where("url = ?", url).First(src).Error
	if err == nil {
		if name != "" && name != src.Name {
			if err := s.DB.Model(src).Update("name", name).Error; err != nil {
				return nil, err
			}
		}
		return src, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	src = &Source{URL: url, Name: name, Status: StatusActive}
	if err := s.DB.Create(src).Error; err != nil {
		return nil, err
	}
	return src, nil
}

// ListSources 按登记顺序返回全部站点
func (s *Store) ListSources() ([]Source, error) {
	var list []Source
	err := s.DB.Order("created_at ASC").Find(&list).Error
	return list, err
}

// ListSourceURLs 返回需要预热的站点地址
func (s *Store) ListSourceURLs() ([]string, error) {
	var urls []string
	err := s.DB.Model(&Source{}).
		Where("status = ?", StatusActive).
		Order("created_at ASC").
		Pluck("url", &urls).Error
	return urls, err
}

func (s *Store) RemoveSource(url string) error {
	return s.DB.Where("url = ?", url).Delete(&Source{}).Error
}

// RecordFetch 记录一次预热结果，失败时保留上一次成功的摘要
func (s *Store) RecordFetch(url string, posts []collector.Post, fetchErr error) error {
	now := time.Now()
	updates := map[string]any{"last_fetched_at": now}
	if fetchErr != nil {
		updates["last_error"] = truncate(fetchErr.Error(), 1024)
	} else {
		updates["last_error"] = ""
		updates["extra_data"] = datatypes.JSONMap(FetchSummary(posts))
	}
	res := s.DB.Model(&Source{}).Where("url = ?", url).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("storage: record fetch %s: %w", url, res.Error)
	}
	return nil
}

// FetchSummary 生成写入 ExtraData 的摘要
func FetchSummary(posts []collector.Post) map[string]any {
	out := map[string]any{"posts": len(posts)}
	if len(posts) > 0 {
		out["latestId"] = posts[0].ID
		out["latestTitle"] = truncate(posts[0].Title, 256)
	}
	return out
}

func truncate(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
