package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"complyscan/internal/audit/models"
	"complyscan/internal/audit/service/mocks"
	"complyscan/internal/audit/workflow"
	consentModels "complyscan/internal/consent/models"
	"complyscan/internal/events"
	"complyscan/internal/events/store/memory"
	"complyscan/internal/remote"
	sessionModels "complyscan/internal/session/models"
	dErrors "complyscan/pkg/domain-errors"
	"complyscan/pkg/domain"
	"complyscan/pkg/requestcontext"
	"complyscan/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	backend  *mocks.MockBackend
	sessions *mocks.MockSessions
	bound    []string
	service  *Service
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.backend = mocks.NewMockBackend(s.ctrl)
	s.sessions = mocks.NewMockSessions(s.ctrl)
	s.bound = nil
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	trail := events.NewPublisher(memory.NewInMemoryStore(), logger)
	bind := func(credential string) Backend {
		s.bound = append(s.bound, credential)
		return s.backend
	}
	s.service = New(Config{ConsentText: "I agree", StepTimeout: time.Second}, s.sessions, bind, trail, nil, logger)
	s.ctx = context.Background()

	s.sessions.EXPECT().Resolve(gomock.Any(), "s1").Return(&sessionModels.Session{
		ID:       "s1",
		Identity: sessionModels.Identity{ID: "u1", Credential: "tok-1"},
	}, nil).AnyTimes()
}

func (s *ServiceSuite) TearDownTest() {
	s.Require().NoError(s.service.Wait(s.ctx))
	s.ctrl.Finish()
}

func activeConsent() consentModels.ConsentRecord {
	return consentModels.ConsentRecord{
		ID:        "c1",
		SubjectID: "u1",
		Purpose:   domain.ConsentPurposeAudit,
		GrantedAt: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		Active:    true,
	}
}

func (s *ServiceSuite) expectSuccessfulRun() {
	gomock.InOrder(
		s.backend.EXPECT().ListConsents(gomock.Any(), "u1").Return([]consentModels.ConsentRecord{activeConsent()}, nil),
		s.backend.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&models.AuditHandle{AuditID: "a1"}, nil),
		s.backend.EXPECT().Run(gomock.Any(), "a1").Return(&models.RunStatus{Status: "done"}, nil),
		s.backend.EXPECT().Summary(gomock.Any(), "a1").Return(&models.RawSummary{
			AuditID:    "a1",
			Score:      json.RawMessage(`90`),
			Violations: json.RawMessage(`[]`),
		}, nil),
	)
}

func (s *ServiceSuite) TestSubmit() {
	testutil.Given(s.T(), "a subject with consent", func(t *testing.T) {
		s.expectSuccessfulRun()

		testutil.When(t, "a URL is submitted", func(t *testing.T) {
			_, err := s.service.Submit(s.ctx, "s1", "https://example.com")
			require.NoError(t, err)
			require.NoError(t, s.service.Wait(s.ctx))

			testutil.Then(t, "the run is ready and bound to the session credential", func(t *testing.T) {
				state, err := s.service.State(s.ctx, "s1")
				require.NoError(t, err)
				assert.Equal(t, workflow.PhaseReady, state.Phase)
				assert.Equal(t, "a1", state.AuditID)
				assert.Equal(t, []string{"tok-1"}, s.bound, "backend is bound once per session")
			})
		})
	})
}

func (s *ServiceSuite) TestSubmitWhileRunning() {
	release := make(chan struct{})
	s.backend.EXPECT().ListConsents(gomock.Any(), "u1").DoAndReturn(
		func(context.Context, string) ([]consentModels.ConsentRecord, error) {
			<-release
			return nil, nil
		})

	_, err := s.service.Submit(s.ctx, "s1", "https://example.com")
	s.Require().NoError(err)

	_, err = s.service.Submit(s.ctx, "s1", "https://example.org")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.GrantConsent(s.ctx, "s1")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	close(release)
	s.Require().NoError(s.service.Wait(s.ctx))
	state, err := s.service.State(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal(workflow.PhaseConsentMissing, state.Phase)
}

func (s *ServiceSuite) TestGrantConsentResumesPendingRun() {
	s.backend.EXPECT().ListConsents(gomock.Any(), "u1").Return(nil, nil)
	_, err := s.service.Submit(s.ctx, "s1", "https://example.com")
	s.Require().NoError(err)
	s.Require().NoError(s.service.Wait(s.ctx))

	rec := activeConsent()
	gomock.InOrder(
		s.backend.EXPECT().RecordConsent(gomock.Any(), consentModels.GrantRequest{
			SubjectID:   "u1",
			Purpose:     domain.ConsentPurposeAudit,
			ConsentText: "I agree",
		}).Return(&rec, nil),
		s.backend.EXPECT().Create(gomock.Any(), models.AuditRequest{
			TargetURL: "https://example.com",
			SubjectID: "u1",
			ConsentID: "c1",
		}).Return(&models.AuditHandle{AuditID: "a1"}, nil),
		s.backend.EXPECT().Run(gomock.Any(), "a1").Return(&models.RunStatus{}, nil),
		s.backend.EXPECT().Summary(gomock.Any(), "a1").Return(&models.RawSummary{Score: json.RawMessage(`40`)}, nil),
	)

	view, err := s.service.GrantConsent(s.ctx, "s1")
	s.Require().NoError(err)
	s.NotNil(view.State)
	s.Require().NoError(s.service.Wait(s.ctx))

	state, err := s.service.State(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal(workflow.PhaseReady, state.Phase)
}

func (s *ServiceSuite) TestGrantConsentWithoutPendingRun() {
	s.Run("recorded", func() {
		rec := activeConsent()
		s.backend.EXPECT().RecordConsent(gomock.Any(), gomock.Any()).Return(&rec, nil)

		view, err := s.service.GrantConsent(s.ctx, "s1")
		s.Require().NoError(err)
		s.True(view.Granted)
		s.Equal("c1", view.Consent.ID)
		s.Nil(view.State)
	})

	s.Run("service rejects", func() {
		s.backend.EXPECT().RecordConsent(gomock.Any(), gomock.Any()).
			Return(nil, &remote.Error{Op: "record_consent", Category: remote.CategoryRejected, Message: "Consent text missing"})

		_, err := s.service.GrantConsent(s.ctx, "s1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal("Consent text missing", dErrors.MessageOf(err))
	})
}

func (s *ServiceSuite) TestConsentStatus() {
	s.backend.EXPECT().ListConsents(gomock.Any(), "u1").Return(nil, nil)
	view, err := s.service.ConsentStatus(s.ctx, "s1")
	s.Require().NoError(err)
	s.False(view.Granted)
	s.Equal(workflow.ConsentCallToAction, view.CallToAction)

	s.backend.EXPECT().ListConsents(gomock.Any(), "u1").Return([]consentModels.ConsentRecord{activeConsent()}, nil)
	view, err = s.service.ConsentStatus(s.ctx, "s1")
	s.Require().NoError(err)
	s.True(view.Granted)
	s.Equal("c1", view.Consent.ID)
}

func (s *ServiceSuite) TestEventsAndForget() {
	s.expectSuccessfulRun()
	_, err := s.service.Submit(s.ctx, "s1", "https://example.com")
	s.Require().NoError(err)
	s.Require().NoError(s.service.Wait(s.ctx))

	trail, err := s.service.Events(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().NotEmpty(trail)
	s.Equal(events.ActionAuditReady, trail[0].Action)

	s.service.Forget("s1")
	state, err := s.service.State(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal(workflow.PhaseIdle, state.Phase, "a forgotten session starts over")
	s.Equal([]string{"tok-1", "tok-1"}, s.bound)
}

func (s *ServiceSuite) TestHistory() {
	s.Run("lists the subject's audits", func() {
		score := 64.0
		s.backend.EXPECT().ListAudits(gomock.Any(), "u1").
			Return([]models.AuditRecord{{ID: "7", Target: "https://example.com", Status: "completed", Score: &score}}, nil)

		records, err := s.service.History(s.ctx, "s1")
		s.Require().NoError(err)
		s.Require().Len(records, 1)
		s.Equal("7", records[0].ID)
	})

	s.Run("empty history is not nil", func() {
		s.backend.EXPECT().ListAudits(gomock.Any(), "u1").Return(nil, nil)

		records, err := s.service.History(s.ctx, "s1")
		s.Require().NoError(err)
		s.NotNil(records)
		s.Empty(records)
	})

	s.Run("rejected credential", func() {
		s.backend.EXPECT().ListAudits(gomock.Any(), "u1").
			Return(nil, &remote.Error{Op: "audits.list", Category: remote.CategoryUnauthorized, StatusCode: 401})

		_, err := s.service.History(s.ctx, "s1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("outage", func() {
		s.backend.EXPECT().ListAudits(gomock.Any(), "u1").
			Return(nil, &remote.Error{Op: "audits.list", Category: remote.CategoryTimeout})

		_, err := s.service.History(s.ctx, "s1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})
}

func (s *ServiceSuite) TestUnknownSession() {
	s.sessions.EXPECT().Resolve(gomock.Any(), "gone").
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "session expired or signed out"))

	_, err := s.service.State(s.ctx, "gone")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestDetachDropsPinnedTime(t *testing.T) {
	pinned := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), pinned)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	out := detach(ctx)
	assert.NoError(t, out.Err())
	assert.Equal(t, "req-1", requestcontext.RequestID(out))
	assert.NotEqual(t, pinned, requestcontext.Now(out))
}
