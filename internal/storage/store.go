package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jmherbst/verifeed/internal/card"
)

var (
	cardsBucket      = []byte("cards")
	engagementBucket = []byte("engagement")
	sourcesBucket    = []byte("sources")
	metaBucket       = []byte("metadata")
)

var lastSyncKey = []byte("last_sync")

// Store is the local card cache. Cards fetched from the service are kept
// here so the archive remains browsable and searchable offline.
type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{cardsBucket, engagementBucket, sourcesBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveCards(cards []*card.Card) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(cardsBucket)
		for _, c := range cards {
			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(c.ID), data); err != nil {
				return err
			}
		}
		return tx.Bucket(metaBucket).Put(lastSyncKey, []byte(time.Now().UTC().Format(time.RFC3339)))
	})
	if err != nil {
		return fmt.Errorf("saving cards: %w", err)
	}
	return nil
}

func (s *Store) GetCard(id string) (*card.Card, error) {
	var c card.Card
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(cardsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("card not found")
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCards returns cached cards newest first, optionally restricted to one
// verdict. A limit of zero means no limit.
func (s *Store) GetCards(filter card.Verdict, limit int) ([]*card.Card, error) {
	var cards []*card.Card
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(cardsBucket).ForEach(func(_ []byte, v []byte) error {
			var c card.Card
			if err := json.Unmarshal(v, &c); err != nil {
				return nil
			}
			if filter == "" || c.Verdict == filter {
				cards = append(cards, &c)
			}
			return nil
		})
	})
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].CreatedAt.After(cards[j].CreatedAt.Time)
	})
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, err
}

func (s *Store) DeleteCard(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(cardsBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(engagementBucket).Delete([]byte(id))
	})
}

// CardCount returns the number of cached cards.
func (s *Store) CardCount() (int, error) {
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(cardsBucket).Stats().KeyN
		return nil
	})
	return count, err
}

// LastSync returns the time of the most recent SaveCards call, or the zero
// time when nothing has been cached yet.
func (s *Store) LastSync() (time.Time, error) {
	var ts time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get(lastSyncKey)
		if data == nil {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, string(data))
		if err != nil {
			return err
		}
		ts = parsed
		return nil
	})
	return ts, err
}

type engagementRecord struct {
	Liked      bool `json:"liked"`
	Bookmarked bool `json:"bookmarked"`
}

// ToggleEngagement flips the local like or bookmark flag for a card and
// returns the new value. Unknown actions are an error.
func (s *Store) ToggleEngagement(cardID, action string) (bool, error) {
	if action != card.ActionLike && action != card.ActionBookmark {
		return false, fmt.Errorf("unknown engagement action: %s", action)
	}

	var active bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(engagementBucket)

		var rec engagementRecord
		if data := b.Get([]byte(cardID)); data != nil {
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
		}

		switch action {
		case card.ActionLike:
			rec.Liked = !rec.Liked
			active = rec.Liked
		case card.ActionBookmark:
			rec.Bookmarked = !rec.Bookmarked
			active = rec.Bookmarked
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put([]byte(cardID), data)
	})
	return active, err
}

// Engagement returns the local like and bookmark flags for a card.
func (s *Store) Engagement(cardID string) (liked, bookmarked bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(engagementBucket).Get([]byte(cardID))
		if data == nil {
			return nil
		}
		var rec engagementRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		liked = rec.Liked
		bookmarked = rec.Bookmarked
		return nil
	})
	return liked, bookmarked, err
}

// Bookmarked returns the cached cards the user bookmarked, newest first.
func (s *Store) Bookmarked() ([]*card.Card, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(engagementBucket).ForEach(func(k []byte, v []byte) error {
			var rec engagementRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			if rec.Bookmarked {
				ids = append(ids, string(k))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	var cards []*card.Card
	for _, id := range ids {
		c, err := s.GetCard(id)
		if err != nil {
			continue
		}
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].CreatedAt.After(cards[j].CreatedAt.Time)
	})
	return cards, nil
}

func (s *Store) SaveSource(src *Source) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(src)
		if err != nil {
			return err
		}
		return tx.Bucket(sourcesBucket).Put([]byte(src.ID), data)
	})
}

func (s *Store) GetAllSources() ([]*Source, error) {
	var sources []*Source
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sourcesBucket).ForEach(func(_ []byte, v []byte) error {
			var src Source
			if err := json.Unmarshal(v, &src); err != nil {
				return err
			}
			sources = append(sources, &src)
			return nil
		})
	})
	// Sort by Title (case-insensitive), fallback to URL
	sort.Slice(sources, func(i, j int) bool {
		ti := sources[i].Title
		tj := sources[j].Title
		if ti == "" {
			ti = sources[i].URL
		}
		if tj == "" {
			tj = sources[j].URL
		}
		return strings.ToLower(ti) < strings.ToLower(tj)
	})
	return sources, err
}

func (s *Store) DeleteSource(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sourcesBucket).Delete([]byte(id))
	})
}
