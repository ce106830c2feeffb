package service

import (
	"context"
	"io"
	"testing"
	"time"

	"postqueue/internal/database"
	"postqueue/internal/domain/contract"
	"postqueue/internal/domain/entity"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeMediaStore tracks files by name without touching the filesystem.
type fakeMediaStore struct {
	files   map[string]bool
	deleted []string
}

func newFakeMediaStore(files ...string) *fakeMediaStore {
	s := &fakeMediaStore{files: make(map[string]bool)}
	for _, f := range files {
		s.files[f] = true
	}
	return s
}

func (s *fakeMediaStore) Save(r io.Reader, originalName string) (string, error) {
	s.files[originalName] = true
	return originalName, nil
}

func (s *fakeMediaStore) Exists(path string) bool {
	_, ok := s.Resolve(path)
	return ok
}

func (s *fakeMediaStore) Resolve(path string) (string, bool) {
	if s.files[path] {
		return path, true
	}
	return "", false
}

func (s *fakeMediaStore) Delete(path string) error {
	delete(s.files, path)
	s.deleted = append(s.deleted, path)
	return nil
}

type serviceTest struct {
	dm    contract.DataManager
	media *fakeMediaStore

	queue    *queueService
	schedule *scheduleService
	backup   *backupService
}

// setupServiceTest wires the services over an in-memory database with a
// frozen clock in UTC.
func setupServiceTest(t *testing.T, now time.Time) *serviceTest {
	t.Helper()

	db := database.SetupTestDB(t)
	t.Cleanup(func() { database.CleanupTestDB(t, db) })

	dm := database.NewInstance(db)
	media := newFakeMediaStore()
	log := zerolog.Nop()
	locks := newOwnerLocks()
	clock := func() time.Time { return now }

	return &serviceTest{
		dm:       dm,
		media:    media,
		queue:    newQueueService(dm, media, log, clock),
		schedule: newScheduleService(dm, log, time.UTC, locks, clock),
		backup:   newBackupService(dm, media, log, time.UTC, locks, clock),
	}
}

func (s *serviceTest) registerChannel(t *testing.T, ownerID int64, channelID string) {
	t.Helper()
	err := s.queue.AddChannel(context.Background(), &entity.Channel{
		OwnerID:   ownerID,
		ChannelID: channelID,
	})
	require.NoError(t, err)
}

func (s *serviceTest) addPost(t *testing.T, post *entity.Post) *entity.Post {
	t.Helper()
	if post.MediaPath == "" {
		post.MediaPath = "file.jpg"
	}
	s.media.files[post.MediaPath] = true
	err := s.queue.AddPost(context.Background(), post)
	require.NoError(t, err)
	return post
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, time.UTC)
	require.NoError(t, err)
	return ts
}

func atPtr(t *testing.T, value string) *time.Time {
	t.Helper()
	ts := at(t, value)
	return &ts
}
