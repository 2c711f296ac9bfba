package handler

import (
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"examreg/internal/notify"
	"examreg/internal/registration/models"
	"examreg/internal/registration/service"
	"examreg/internal/registration/store"
	dErrors "examreg/pkg/domain-errors"
	"examreg/pkg/testutil"
)

type fakeQueue struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (q *fakeQueue) Enqueue(msg notify.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
}

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	store  *store.InMemory
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = store.NewInMemory()
	svc := service.New(s.store, &fakeQueue{}, logger)

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) createPayload(key string) map[string]any {
	return map[string]any{
		"idempotency_key": key,
		"name":            "Jo Lee",
		"email":           "jo@x.com",
		"student_phone":   "010-1111-2222",
		"school":          "Riverside High",
		"grade":           "11",
		"section":         "Mathematics",
	}
}

func (s *HandlerSuite) submit(key string) *models.Registration {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registrations", s.createPayload(key))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	resp := testutil.UnmarshalResponse[struct {
		Registration *models.Registration `json:"registration"`
	}](s.T(), rr)
	return resp.Registration
}

// TestCreate verifies the submission endpoint and its idempotent replay
// status codes.
func (s *HandlerSuite) TestCreate() {
	s.Run("returns 201 with the new registration", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registrations", s.createPayload("key-1"))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[struct {
			Registration *models.Registration `json:"registration"`
			Created      bool                 `json:"created"`
		}](s.T(), rr)
		s.True(resp.Created)
		s.Require().NotNil(resp.Registration)
		s.False(resp.Registration.ID.IsZero())
		s.Equal("Jo Lee", resp.Registration.Name)
		s.Equal(models.PaymentPending, resp.Registration.PaymentStatus)
	})

	s.Run("replay returns 200 with the original registration", func() {
		first := s.submit("key-replay")

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registrations", s.createPayload("key-replay"))
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[struct {
			Registration *models.Registration `json:"registration"`
			Created      bool                 `json:"created"`
		}](s.T(), rr)
		s.False(resp.Created)
		s.Equal(first.ID, resp.Registration.ID)
	})

	s.Run("rejects malformed JSON", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registrations", nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeBadRequest))
	})

	s.Run("rejects missing fields with a field list", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/registrations", map[string]any{
			"idempotency_key": "key-bad",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		resp := testutil.UnmarshalResponse[struct {
			Fields []dErrors.FieldError `json:"fields"`
		}](s.T(), rr)
		s.NotEmpty(resp.Fields)
	})
}

// TestGet verifies detail retrieval with the audit trail attached.
func (s *HandlerSuite) TestGet() {
	reg := s.submit("key-get")

	s.Run("returns the registration with its trail", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/registrations/"+reg.ID.String(), nil)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[struct {
			Registration *models.Registration `json:"registration"`
			AuditTrail   []*models.AuditEntry `json:"audit_trail"`
		}](s.T(), rr)
		s.Equal(reg.ID, resp.Registration.ID)
		s.Require().Len(resp.AuditTrail, 1)
		s.Equal(models.AuditCreated, resp.AuditTrail[0].Action)
	})

	s.Run("unknown ID returns 404", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/registrations/6a5e4bb2-7b5a-4c5e-9ad1-2f41f1a5c9d0", nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeNotFound))
	})

	s.Run("malformed ID returns 400", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/registrations/not-a-uuid", nil)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

// TestList verifies the listing endpoint.
func (s *HandlerSuite) TestList() {
	s.submit("key-a")
	s.submit("key-b")

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/registrations", nil)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[struct {
		Registrations []*models.Registration `json:"registrations"`
	}](s.T(), rr)
	s.Len(resp.Registrations, 2)
}

// TestUpdate verifies the full-replacement update endpoint.
func (s *HandlerSuite) TestUpdate() {
	reg := s.submit("key-upd")

	payload := map[string]any{
		"name":           "Jo Lee-Park",
		"email":          "jo@x.com",
		"student_phone":  "010-1111-2222",
		"school":         "Riverside High",
		"grade":          "12",
		"section":        "Mathematics",
		"payment_status": "Paid",
		"actor":          "Admin Kim",
	}

	s.Run("returns the updated registration", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/registrations/"+reg.ID.String(), payload)
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[models.Registration](s.T(), rr)
		s.Equal("Jo Lee-Park", resp.Name)
		s.Equal("12", resp.Grade)
		s.Equal(models.PaymentPaid, resp.PaymentStatus)
		s.Equal("Admin Kim", resp.UpdatedBy)
		s.NotNil(resp.UpdatedAt)
	})

	s.Run("unknown ID returns 404", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/registrations/6a5e4bb2-7b5a-4c5e-9ad1-2f41f1a5c9d0", payload)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("invalid payload returns 400", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/registrations/"+reg.ID.String(), map[string]any{
			"payment_status": "Paid",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

// TestDelete verifies the delete endpoint and its not-found path.
func (s *HandlerSuite) TestDelete() {
	reg := s.submit("key-del")

	req := testutil.NewJSONRequest(s.T(), http.MethodDelete, "/registrations/"+reg.ID.String(), nil)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	req = testutil.NewJSONRequest(s.T(), http.MethodGet, "/registrations/"+reg.ID.String(), nil)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)

	req = testutil.NewJSONRequest(s.T(), http.MethodDelete, "/registrations/"+reg.ID.String(), nil)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}
