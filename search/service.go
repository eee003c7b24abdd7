package search

import (
	"context"
	"os"
	"strings"

	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	EngineMeili = "meilisearch"
	EngineSQL   = "sql"
)

// Service tries Meilisearch first and falls back to SQL LIKE matching.
type Service struct {
	meili  *Meili
	logger *logrus.Logger
}

// NewService creates a search service. meili may be nil.
func NewService(meili *Meili, logger *logrus.Logger) *Service {
	return &Service{meili: meili, logger: logger}
}

// NewServiceFromEnv connects to MEILI_URL (with MEILI_MASTER_KEY) when set.
func NewServiceFromEnv(logger *logrus.Logger) *Service {
	url := strings.TrimSpace(os.Getenv("MEILI_URL"))
	if url == "" {
		return NewService(nil, logger)
	}
	return NewService(NewMeili(url, os.Getenv("MEILI_MASTER_KEY"), logger), logger)
}

func (s *Service) Close() {
	if s != nil && s.meili != nil {
		s.meili.Close()
	}
}

func (s *Service) meiliReady() bool {
	return s != nil && s.meili != nil && s.meili.Healthy()
}

// Enabled reports whether searches currently go to Meilisearch.
func (s *Service) Enabled() bool {
	return s.meiliReady()
}

// SearchSongs returns the owner's songs matching q and the engine that
// answered.
func (s *Service) SearchSongs(ctx context.Context, q string, limit int) ([]*models.Song, string, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, "", err
	}
	q = strings.TrimSpace(q)

	if q != "" && s.meiliReady() {
		ids, err := s.meili.SearchSongIds(ownerId, q, limit)
		if err == nil {
			songs, err := models.GetSongsByIds(ctx, ids)
			return songs, EngineMeili, err
		}
		s.logger.WithFields(logrus.Fields{"field": "search"}).Warn("meilisearch error, falling back to sql: " + err.Error())
	}

	songs, err := models.GetSongs(ctx, models.SongFilter{Query: q})
	if err != nil {
		return nil, EngineSQL, err
	}
	if limit > 0 && len(songs) > limit {
		songs = songs[:limit]
	}
	return songs, EngineSQL, nil
}

func songDocument(song *models.Song) SongDocument {
	return SongDocument{
		ID:         song.ID,
		OwnerId:    song.OwnerId,
		Title:      song.Title,
		Artist:     song.Artist,
		Album:      song.Album,
		Composers:  song.Composers,
		Publishers: song.Publishers,
		Genre:      song.Genre,
		Mood:       song.Mood,
		Lyrics:     song.Lyrics,
	}
}

// IndexSong indexes a created or updated song (fire-and-forget).
func (s *Service) IndexSong(song *models.Song) {
	if !s.meiliReady() {
		return
	}
	doc := songDocument(song)
	go func() {
		if err := s.meili.IndexSongs([]SongDocument{doc}); err != nil {
			s.logger.WithFields(logrus.Fields{"field": "search", "songId": doc.ID}).Warn("index song: " + err.Error())
		}
	}()
}

// DeleteSong removes a song from the index (fire-and-forget).
func (s *Service) DeleteSong(id int) {
	if !s.meiliReady() {
		return
	}
	go func() {
		if err := s.meili.DeleteSong(id); err != nil {
			s.logger.WithFields(logrus.Fields{"field": "search", "songId": id}).Warn("delete song: " + err.Error())
		}
	}()
}

// ReindexSongs pushes every song of the context's owner to the index and
// returns how many were sent.
func (s *Service) ReindexSongs(ctx context.Context) (int, error) {
	if !s.meiliReady() {
		return 0, nil
	}
	songs, err := models.GetSongs(ctx, models.SongFilter{})
	if err != nil {
		return 0, err
	}
	docs := make([]SongDocument, 0, len(songs))
	for _, song := range songs {
		docs = append(docs, songDocument(song))
	}
	if err := s.meili.IndexSongs(docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}
