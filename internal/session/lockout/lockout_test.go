package lockout

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/requestcontext"
)

type LockoutSuite struct {
	suite.Suite
	store   *InMemoryStore
	lockout *Lockout
	now     time.Time
}

func TestLockoutSuite(t *testing.T) {
	suite.Run(t, new(LockoutSuite))
}

func (s *LockoutSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.lockout = New(s.store, Config{Attempts: 3, Window: time.Minute, Duration: 10 * time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *LockoutSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(offset))
}

func (s *LockoutSuite) TestLocksAfterThreshold() {
	for i := 0; i < 2; i++ {
		s.Require().NoError(s.lockout.RecordFailure(s.at(0), "Ada@Example.com"))
		s.NoError(s.lockout.Check(s.at(0), "ada@example.com"))
	}
	s.Require().NoError(s.lockout.RecordFailure(s.at(time.Second), "ada@example.com"))

	err := s.lockout.Check(s.at(2*time.Second), " ada@example.com ")
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	s.Contains(dErrors.MessageOf(err), "try again in 9m59s")

	s.NoError(s.lockout.Check(s.at(11*time.Minute), "ada@example.com"), "lock expires")
}

func (s *LockoutSuite) TestWindowResetsCounter() {
	s.Require().NoError(s.lockout.RecordFailure(s.at(0), "ada@example.com"))
	s.Require().NoError(s.lockout.RecordFailure(s.at(0), "ada@example.com"))
	s.Require().NoError(s.lockout.RecordFailure(s.at(2*time.Minute), "ada@example.com"))

	rec, err := s.store.Get(context.Background(), "ada@example.com")
	s.Require().NoError(err)
	s.Equal(1, rec.Failures)
	s.NoError(s.lockout.Check(s.at(2*time.Minute), "ada@example.com"))
}

func (s *LockoutSuite) TestClear() {
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.lockout.RecordFailure(s.at(0), "ada@example.com"))
	}
	s.Require().NoError(s.lockout.Clear(s.at(0), "ada@example.com"))
	s.NoError(s.lockout.Check(s.at(0), "ada@example.com"))

	rec, err := s.store.Get(context.Background(), "ada@example.com")
	s.NoError(err)
	s.Nil(rec)
}
