package search

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/sirupsen/logrus"
)

const idxSongs = "licensing_songs"

// SongDocument is what the songs index stores. ownerId is filterable so a
// query never crosses owners.
type SongDocument struct {
	ID         int    `json:"id"`
	OwnerId    int    `json:"ownerId"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	Composers  string `json:"composers"`
	Publishers string `json:"publishers"`
	Genre      string `json:"genre"`
	Mood       string `json:"mood"`
	Lyrics     string `json:"lyrics"`
}

// Meili indexes and searches songs in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *logrus.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a client and configures the songs index. An unreachable
// server leaves the client unhealthy until the health loop sees it recover.
func NewMeili(url, apiKey string, logger *logrus.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.WithFields(logrus.Fields{"field": "search", "url": url}).Warn("meilisearch unavailable: " + err.Error())
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxSongs,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.WithFields(logrus.Fields{"field": "search"}).Debug("create index (may already exist): " + err.Error())
	}

	index := m.client.Index(idxSongs)
	filterable := []interface{}{"ownerId", "genre", "mood"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.WithFields(logrus.Fields{"field": "search"}).Warn("update filterable attributes: " + err.Error())
	}
	searchable := []string{"title", "artist", "album", "composers", "publishers", "genre", "mood", "lyrics"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.WithFields(logrus.Fields{"field": "search"}).Warn("update searchable attributes: " + err.Error())
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.WithFields(logrus.Fields{"field": "search"}).Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// SearchSongIds returns the ids of ownerId's best matching songs, best first.
func (m *Meili) SearchSongIds(ownerId int, q string, limit int) ([]int, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}
	if limit <= 0 {
		limit = 20
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: idxSongs,
			Query:    q,
			Limit:    int64(limit),
			Filter:   []string{fmt.Sprintf("ownerId = %d", ownerId)},
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	ids := []int{}
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			if id, ok := decodeInt(hit["id"]); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func (m *Meili) IndexSongs(docs []SongDocument) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := m.client.Index(idxSongs).AddDocuments(docs, nil)
	return err
}

func (m *Meili) DeleteSong(id int) error {
	_, err := m.client.Index(idxSongs).DeleteDocument(strconv.Itoa(id), nil)
	return err
}

// decodeInt reads a numeric hit attribute; ids may come back as strings.
func decodeInt(raw []byte) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
