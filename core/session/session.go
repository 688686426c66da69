// Package session holds the per-recording state: the two ordered command
// logs, the monotonic blob key counter, the blob store, and the staging
// directory released on reset.
package session

import (
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	Clock  clock.Clock
	Logger *zap.Logger
}

// Session is single-threaded by contract: the interception layer and the
// serializer mutate it only on behalf of the one logical call in flight.
type Session struct {
	id         string
	createdAt  time.Time
	clock      clock.Clock
	logger     *zap.Logger
	setupLog   []string
	mainLog    []string
	keyCounter int
	blobKeys   []string
	blobs      map[string][]byte
	tempDir    string
	released   bool
}

func New(options Options) (*Session, error) {
	clk := options.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tempDir, err := os.MkdirTemp("", "plotrec_temp_")
	if err != nil {
		return nil, fmt.Errorf("create session temp dir: %w", err)
	}
	return &Session{
		id:        uuid.NewString(),
		createdAt: clk.Now().UTC(),
		clock:     clk,
		logger:    logger,
		blobs:     map[string][]byte{},
		tempDir:   tempDir,
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) Now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Session) TempDir() string {
	s.mustLive()
	return s.tempDir
}

// NewBlobKey returns a fresh session-unique key, e.g. "data_0.npy".
func (s *Session) NewBlobKey(extension string) string {
	s.mustLive()
	key := fmt.Sprintf("data_%d%s", s.keyCounter, extension)
	s.keyCounter++
	return key
}

// StoreBlob binds a key to its payload; a blob is written once and never
// mutated.
func (s *Session) StoreBlob(key string, payload []byte) error {
	s.mustLive()
	if key == "" {
		return fmt.Errorf("blob key is required")
	}
	if _, exists := s.blobs[key]; exists {
		return fmt.Errorf("blob key %q already stored", key)
	}
	s.blobs[key] = payload
	s.blobKeys = append(s.blobKeys, key)
	return nil
}

func (s *Session) AddLog(command string) {
	s.mustLive()
	s.mainLog = append(s.mainLog, command)
}

func (s *Session) AddSetupLog(command string) {
	s.mustLive()
	s.setupLog = append(s.setupLog, command)
}

// SetupLog returns a copy of the setup-phase commands in append order.
func (s *Session) SetupLog() []string {
	s.mustLive()
	return append([]string{}, s.setupLog...)
}

// MainLog returns a copy of the main-phase commands in append order.
func (s *Session) MainLog() []string {
	s.mustLive()
	return append([]string{}, s.mainLog...)
}

// BlobKeys returns blob keys in storage order.
func (s *Session) BlobKeys() []string {
	s.mustLive()
	return append([]string{}, s.blobKeys...)
}

func (s *Session) Blob(key string) ([]byte, bool) {
	s.mustLive()
	payload, ok := s.blobs[key]
	return payload, ok
}

// Reset releases all logs, blobs and the staging directory. It is safe to
// call at any point, including before any activity and repeatedly; a
// failure to remove the staging directory is downgraded to a warning. Any
// other use of the session after Reset panics.
func (s *Session) Reset() {
	if s.released {
		return
	}
	s.setupLog = nil
	s.mainLog = nil
	s.blobKeys = nil
	s.blobs = nil
	if s.tempDir != "" {
		if err := os.RemoveAll(s.tempDir); err != nil {
			s.logger.Warn("failed to remove session temp dir",
				zap.String("session_id", s.id),
				zap.String("temp_dir", s.tempDir),
				zap.Error(err))
		}
		s.tempDir = ""
	}
	s.released = true
}

// Released reports whether Reset has torn the session down.
func (s *Session) Released() bool {
	return s.released
}

func (s *Session) mustLive() {
	if s.released {
		panic(fmt.Sprintf("session %s used after Reset", s.id))
	}
}
