package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrFileNotStaged is returned when a checklist entry has no bytes in Redis,
// typically because the draft outlived its staged files.
var ErrFileNotStaged = errors.New("FILE_NOT_STAGED")

// ErrDraftContended is returned when Update keeps losing the race for a draft.
var ErrDraftContended = errors.New("DRAFT_CONTENDED")

const maxUpdateAttempts = 10

func DraftKey(applicationID string) string {
	return "wizard:draft:" + applicationID
}

func FileKey(applicationID, documentKey string) string {
	return fmt.Sprintf("wizard:file:%s:%s", applicationID, documentKey)
}

// DraftStore keeps wizard drafts and their staged file bytes in Redis until
// the application is submitted or the TTL lapses.
type DraftStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewDraftStore(client redis.UniversalClient, ttl time.Duration) *DraftStore {
	return &DraftStore{client: client, ttl: ttl}
}

// Load returns the stored draft, or a fresh one when none exists.
func (s *DraftStore) Load(ctx context.Context, applicationID string) (*Draft, error) {
	return s.load(ctx, s.client, applicationID)
}

func (s *DraftStore) load(ctx context.Context, c redis.Cmdable, applicationID string) (*Draft, error) {
	raw, err := c.Get(ctx, DraftKey(applicationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewDraft(applicationID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft %s: %w", applicationID, err)
	}

	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", applicationID, err)
	}
	d.ApplicationID = applicationID
	return &d, nil
}

// Save writes the draft and refreshes the TTL of every staged file with it.
func (s *DraftStore) Save(ctx context.Context, d *Draft) error {
	return s.save(ctx, s.client, d)
}

func (s *DraftStore) save(ctx context.Context, c redis.Cmdable, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.ApplicationID, err)
	}

	_, err = c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, DraftKey(d.ApplicationID), raw, s.ttl)
		for key := range d.Documents {
			pipe.Expire(ctx, FileKey(d.ApplicationID, key), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save draft %s: %w", d.ApplicationID, err)
	}
	return nil
}

// Update loads the draft, applies fn and writes it back in one optimistic
// transaction. A concurrent write to the draft between the read and the
// write reruns fn against the fresh copy, so edits from parallel requests
// are never lost. An error from fn aborts without writing and is returned
// unchanged.
func (s *DraftStore) Update(ctx context.Context, applicationID string, fn func(*Draft) error) (*Draft, error) {
	var out *Draft
	txf := func(tx *redis.Tx) error {
		d, err := s.load(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
		if err := s.save(ctx, tx, d); err != nil {
			return err
		}
		out = d
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, DraftKey(applicationID))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDraftContended, applicationID)
}

// StageFile stores the bytes for one checklist entry.
func (s *DraftStore) StageFile(ctx context.Context, applicationID, documentKey string, data []byte) error {
	if err := s.client.Set(ctx, FileKey(applicationID, documentKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("stage %s for %s: %w", documentKey, applicationID, err)
	}
	return nil
}

// LoadFile returns the staged bytes for one checklist entry.
func (s *DraftStore) LoadFile(ctx context.Context, applicationID, documentKey string) ([]byte, error) {
	data, err := s.client.Get(ctx, FileKey(applicationID, documentKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotStaged, documentKey)
	}
	if err != nil {
		return nil, fmt.Errorf("load staged %s for %s: %w", documentKey, applicationID, err)
	}
	return data, nil
}

// DropFile removes the staged bytes for one checklist entry.
func (s *DraftStore) DropFile(ctx context.Context, applicationID, documentKey string) error {
	return s.client.Del(ctx, FileKey(applicationID, documentKey)).Err()
}

// Delete removes the draft and the staged files named by documentKeys.
func (s *DraftStore) Delete(ctx context.Context, applicationID string, documentKeys []string) error {
	keys := []string{DraftKey(applicationID)}
	for _, k := range documentKeys {
		keys = append(keys, FileKey(applicationID, k))
	}
	return s.client.Del(ctx, keys...).Err()
}
