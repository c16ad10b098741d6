package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"complyscan/internal/consent/gate/mocks"
	"complyscan/internal/consent/models"
	"complyscan/internal/events"
	"complyscan/internal/events/store/memory"
	"complyscan/internal/platform/metrics"
	"complyscan/internal/remote"
	"complyscan/pkg/domain"
)

type GateSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockConsentService
	trail   *memory.InMemoryStore
	metrics *metrics.Metrics
	gate    *Gate
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockConsentService(s.ctrl)
	s.trail = memory.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.gate = New(s.service, logger,
		WithEvents(events.NewPublisher(s.trail, logger)),
		WithMetrics(s.metrics),
	)
}

func (s *GateSuite) TearDownTest() {
	s.ctrl.Finish()
}

func record(id string, purpose domain.ConsentPurpose, active bool, at time.Time) models.ConsentRecord {
	return models.ConsentRecord{ID: id, SubjectID: "u1", Purpose: purpose, Active: active, GrantedAt: at}
}

func (s *GateSuite) lastEvent() events.Event {
	trail, err := s.trail.ListBySubject(context.Background(), "u1")
	s.Require().NoError(err)
	s.Require().NotEmpty(trail)
	return trail[0]
}

func (s *GateSuite) TestCheckConsent() {
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Run("selects the most recent active audit record", func() {
		s.service.EXPECT().ListConsents(gomock.Any(), "u1").Return([]models.ConsentRecord{
			record("c1", domain.ConsentPurposeAudit, true, t0),
			record("c2", domain.ConsentPurposeAudit, true, t0.Add(time.Hour)),
			record("c3", domain.ConsentPurposeAudit, false, t0.Add(2*time.Hour)),
			record("c4", domain.ConsentPurpose("marketing"), true, t0.Add(3*time.Hour)),
		}, nil)

		rec := s.gate.CheckConsent(ctx, "u1")
		s.Require().NotNil(rec)
		s.Equal("c2", rec.ID)
		s.Equal("c2", s.gate.Granted().ID)
		s.Equal("granted", s.lastEvent().Decision)
	})

	s.Run("no matching record", func() {
		s.service.EXPECT().ListConsents(gomock.Any(), "u1").Return([]models.ConsentRecord{
			record("c3", domain.ConsentPurposeAudit, false, t0),
			record("c4", domain.ConsentPurpose("analysis"), true, t0),
		}, nil)

		s.Nil(s.gate.CheckConsent(ctx, "u1"))
		s.Nil(s.gate.Granted())
		s.Equal("missing", s.lastEvent().Decision)
	})

	s.Run("service error reads as no consent", func() {
		s.service.EXPECT().ListConsents(gomock.Any(), "u1").Return(nil, errors.New("connection refused"))

		s.Nil(s.gate.CheckConsent(ctx, "u1"))
		s.Equal("error", s.lastEvent().Decision)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.ConsentChecks.WithLabelValues("error")))
	})
}

func (s *GateSuite) TestCheckConsentSharesConcurrentCalls() {
	release := make(chan struct{})
	s.service.EXPECT().ListConsents(gomock.Any(), "u1").DoAndReturn(
		func(context.Context, string) ([]models.ConsentRecord, error) {
			<-release
			return []models.ConsentRecord{record("c1", domain.ConsentPurposeAudit, true, time.Now())}, nil
		}).MinTimes(1).MaxTimes(2)

	var wg sync.WaitGroup
	results := make([]*models.ConsentRecord, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.gate.CheckConsent(context.Background(), "u1")
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, rec := range results {
		s.Require().NotNil(rec)
		s.Equal("c1", rec.ID)
	}
	results[0].ID = "mutated"
	s.Equal("c1", results[1].ID, "callers get independent copies")
}

func (s *GateSuite) TestCheckConsentSurvivesCancelledCaller() {
	started := make(chan struct{})
	release := make(chan struct{})
	s.service.EXPECT().ListConsents(gomock.Any(), "u1").DoAndReturn(
		func(ctx context.Context, _ string) ([]models.ConsentRecord, error) {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return []models.ConsentRecord{record("c1", domain.ConsentPurposeAudit, true, time.Now())}, nil
		}).MinTimes(1).MaxTimes(2)

	ctxA, cancelA := context.WithCancel(context.Background())
	doneA := make(chan *models.ConsentRecord, 1)
	go func() { doneA <- s.gate.CheckConsent(ctxA, "u1") }()
	<-started

	doneB := make(chan *models.ConsentRecord, 1)
	go func() { doneB <- s.gate.CheckConsent(context.Background(), "u1") }()

	cancelA()
	select {
	case rec := <-doneA:
		s.Nil(rec, "the cancelled caller gives up")
	case <-time.After(time.Second):
		s.FailNow("cancelled caller kept waiting on the shared check")
	}

	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case rec := <-doneB:
		s.Require().NotNil(rec, "a live caller sees the existing consent")
		s.Equal("c1", rec.ID)
	case <-time.After(time.Second):
		s.FailNow("live caller never returned")
	}
	s.Equal("c1", s.gate.Granted().ID)
}

func (s *GateSuite) TestCheckConsentSharedCallIsBounded() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := New(s.service, logger, WithCheckTimeout(30*time.Millisecond))
	s.service.EXPECT().ListConsents(gomock.Any(), "u1").DoAndReturn(
		func(ctx context.Context, _ string) ([]models.ConsentRecord, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	s.Nil(g.CheckConsent(context.Background(), "u1"))
}

func (s *GateSuite) TestRequestConsent() {
	ctx := context.Background()

	s.Run("success caches the granted record", func() {
		s.service.EXPECT().RecordConsent(gomock.Any(), models.GrantRequest{
			SubjectID:   "u1",
			Purpose:     domain.ConsentPurposeAudit,
			ConsentText: "I agree",
		}).Return(&models.ConsentRecord{ID: "c9"}, nil)

		rec, err := s.gate.RequestConsent(ctx, "u1", "I agree")
		s.Require().NoError(err)
		s.Equal("c9", rec.ID)
		s.True(rec.Active)
		s.Equal(domain.ConsentPurposeAudit, rec.Purpose)
		s.Equal("c9", s.gate.Granted().ID)
		s.Equal(events.ActionConsentGranted, s.lastEvent().Action)
	})

	s.Run("failure carries the service message", func() {
		s.gate.Reset()
		s.service.EXPECT().RecordConsent(gomock.Any(), gomock.Any()).
			Return(nil, &remote.Error{Op: "consents.create", Category: remote.CategoryRejected, StatusCode: 400, Message: "consent text required"})

		rec, err := s.gate.RequestConsent(ctx, "u1", "")
		s.Nil(rec)
		s.Require().Error(err)
		s.ErrorIs(err, ErrConsentRequestFailed)
		var reqErr *RequestError
		s.Require().ErrorAs(err, &reqErr)
		s.Equal("consent text required", reqErr.Message)
		s.Nil(s.gate.Granted(), "no consent may be assumed after a failure")
		s.Equal(events.ActionConsentRequestFailed, s.lastEvent().Action)
	})

	s.Run("failure without a message uses the fallback", func() {
		s.service.EXPECT().RecordConsent(gomock.Any(), gomock.Any()).Return(nil, errors.New("EOF"))

		_, err := s.gate.RequestConsent(ctx, "u1", "I agree")
		var reqErr *RequestError
		s.Require().ErrorAs(err, &reqErr)
		s.Equal(fallbackRequestMessage, reqErr.Message)
	})

	s.Run("empty record is a failure", func() {
		s.service.EXPECT().RecordConsent(gomock.Any(), gomock.Any()).Return(&models.ConsentRecord{}, nil)

		_, err := s.gate.RequestConsent(ctx, "u1", "I agree")
		s.ErrorIs(err, ErrConsentRequestFailed)
	})
}
