package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/infrastructure/metrics"
	"sstcompliance/internal/ports"
	"sstcompliance/internal/usecase/compliance"
)

type fakeService struct {
	indicatorsInput compliance.IndicatorsInput
	dueAt           time.Time
	dueWorker       string
	closeInput      compliance.CloseFindingInput
	actionInput     compliance.UpdateCorrectiveActionInput
	err             error
}

func (f *fakeService) Rules() compliance.Rules { return compliance.DefaultRules() }

func (f *fakeService) ComputeIndicators(_ context.Context, input compliance.IndicatorsInput) (compliance.IndicatorReport, error) {
	f.indicatorsInput = input
	if f.err != nil {
		return compliance.IndicatorReport{}, f.err
	}
	return compliance.IndicatorReport{
		From:       input.Period.From,
		To:         input.Period.To,
		Indicators: domain.Indicators{AccidentCount: 2, FrequencyRate: 5},
	}, nil
}

func (f *fakeService) EquipmentDue(_ context.Context, now time.Time, workerID string) ([]compliance.DueAssignment, error) {
	f.dueAt = now
	f.dueWorker = workerID
	return []compliance.DueAssignment{{
		Assignment: domain.EquipmentAssignment{ID: "asg-1", WorkerID: workerID},
		Standing:   domain.ExpiryResult{Standing: domain.StandingExpired, DaysRemaining: -3},
	}}, f.err
}

func (f *fakeService) CloseFinding(_ context.Context, input compliance.CloseFindingInput) (domain.Finding, error) {
	f.closeInput = input
	if f.err != nil {
		return domain.Finding{}, f.err
	}
	return domain.Finding{ID: input.FindingID, State: domain.FindingClosed}, nil
}

func (f *fakeService) UpdateCorrectiveAction(_ context.Context, input compliance.UpdateCorrectiveActionInput) (domain.CorrectiveAction, error) {
	f.actionInput = input
	if f.err != nil {
		return domain.CorrectiveAction{}, f.err
	}
	return domain.CorrectiveAction{ID: input.ActionID, State: domain.ActionImplemented, Progress: 100}, nil
}

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestRouter(svc Service) http.Handler {
	return NewRouter(context.Background(), svc, Options{
		Metrics: metrics.NewRecorder().Handler(),
		Now:     func() time.Time { return fixedNow },
	})
}

func doJSON(t *testing.T, h http.Handler, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newTestRouter(&fakeService{})

	rr := doJSON(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestCalcRisk(t *testing.T) {
	h := newTestRouter(&fakeService{})

	rr := doJSON(t, h, http.MethodPost, "/v1/calc/risk", `{"probability":3,"severity":5}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var out domain.RiskResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 15, out.Level)
	assert.Equal(t, domain.RiskHigh, out.Classification)

	rr = doJSON(t, h, http.MethodPost, "/v1/calc/risk", `{"probability":6,"severity":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"field":"probability"`)

	rr = doJSON(t, h, http.MethodPost, "/v1/calc/risk", `{"probability":"high"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCalcTriage(t *testing.T) {
	h := newTestRouter(&fakeService{})

	rr := doJSON(t, h, http.MethodPost, "/v1/calc/triage", `{"injury_severity":"Severe","damage_severity":"minor"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var out triageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 5, out.SeverityScore)
	assert.Equal(t, domain.PriorityHigh, out.Priority)
	assert.Equal(t, "1h0m0s", out.ResponseTarget)
	assert.True(t, out.Notify)

	rr = doJSON(t, h, http.MethodPost, "/v1/calc/triage", `{"injury_severity":"severe","damage_severity":"minor","notify":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.False(t, out.Notify)

	rr = doJSON(t, h, http.MethodPost, "/v1/calc/triage", `{"injury_severity":"fatal","damage_severity":"none"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCalcSchedule(t *testing.T) {
	h := newTestRouter(&fakeService{})

	rr := doJSON(t, h, http.MethodPost, "/v1/calc/schedule", `{"start":"2024-01-31","frequency":"monthly","count":3}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var out scheduleResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Dates, 3)
	assert.Equal(t, 29, out.Dates[1].Day())
	assert.Equal(t, time.March, out.Dates[2].Month())
	assert.Equal(t, 31, out.Dates[2].Day())

	rr = doJSON(t, h, http.MethodPost, "/v1/calc/schedule", `{"start":"2024-01-31","frequency":"monthly","count":53}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/v1/calc/schedule", `{"start":"2024-01-31","frequency":"yearly","count":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCalcExpiryUsesServerClock(t *testing.T) {
	h := newTestRouter(&fakeService{})

	rr := doJSON(t, h, http.MethodPost, "/v1/calc/expiry", `{"issue_date":"2024-01-01","validity_months":2}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var out domain.ExpiryResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, domain.StandingExpired, out.Standing)
	assert.Equal(t, -10, out.DaysRemaining)

	rr = doJSON(t, h, http.MethodPost, "/v1/calc/expiry", `{"issue_date":"2024-01-01","validity_months":2,"now":"2024-02-15"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, domain.StandingExpiringSoon, out.Standing)

	rr = doJSON(t, h, http.MethodPost, "/v1/calc/expiry", `{"issue_date":"2024-01-01","validity_months":0}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIndicatorsQuery(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc)

	rr := doJSON(t, h, http.MethodGet, "/v1/reports/indicators?from=2024-02-01&to=2024-03-01&person_hours=400000&average_workers=200&lost_days=4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 400000.0, svc.indicatorsInput.PersonHours)
	assert.Equal(t, 200.0, svc.indicatorsInput.AverageWorkers)
	require.NotNil(t, svc.indicatorsInput.LostDays)
	assert.Equal(t, 4, *svc.indicatorsInput.LostDays)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), svc.indicatorsInput.Period.From)

	rr = doJSON(t, h, http.MethodGet, "/v1/reports/indicators?from=2024-03-01&to=2024-02-01", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for _, bad := range []string{"-1", "Inf", "NaN", "-Inf"} {
		rr = doJSON(t, h, http.MethodGet, "/v1/reports/indicators?person_hours="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, "person_hours=%s", bad)
	}
	rr = doJSON(t, h, http.MethodGet, "/v1/reports/indicators?average_workers=%2BInf", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEquipmentDue(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc)

	rr := doJSON(t, h, http.MethodGet, "/v1/ppe/due?worker_id=w-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, fixedNow, svc.dueAt)
	assert.Equal(t, "w-1", svc.dueWorker)
	assert.Contains(t, rr.Body.String(), `"count":1`)
}

func TestCloseFindingErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "ok", want: http.StatusOK},
		{name: "validation", err: &domain.ValidationError{Field: "closure_evidence", Reason: "required"}, want: http.StatusBadRequest},
		{name: "not found", err: domain.NewNotFound("finding", "f-1"), want: http.StatusNotFound},
		{name: "invalid transition", err: &domain.InvalidTransitionError{Family: "finding", From: "closed", Action: "close"}, want: http.StatusConflict},
		{name: "stale", err: fmt.Errorf("save finding: %w", ports.ErrStaleRevision), want: http.StatusConflict},
		{name: "internal", err: fmt.Errorf("disk full"), want: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{err: tc.err}
			h := newTestRouter(svc)

			rr := doJSON(t, h, http.MethodPost, "/v1/findings/f-1/close", `{"actor":"sst","closure_date":"2024-03-09","closure_evidence":["after.jpg"]}`)
			assert.Equal(t, tc.want, rr.Code)
			assert.Equal(t, "f-1", svc.closeInput.FindingID)
			assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), svc.closeInput.ClosureDate)
		})
	}
}

func TestTransitionAction(t *testing.T) {
	svc := &fakeService{}
	h := newTestRouter(svc)

	rr := doJSON(t, h, http.MethodPost, "/v1/actions/a-1/actions/implement", `{"actor":"owner"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.ActionImplement, svc.actionInput.Transition)
	assert.Equal(t, "a-1", svc.actionInput.ActionID)

	rr = doJSON(t, h, http.MethodPost, "/v1/actions/a-1/actions/update", `{"progress":40}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.Action(""), svc.actionInput.Transition)
	require.NotNil(t, svc.actionInput.Progress)
	assert.Equal(t, 40, *svc.actionInput.Progress)

	rr = doJSON(t, h, http.MethodPost, "/v1/actions/a-1/actions/verify", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, domain.ActionVerify, svc.actionInput.Transition)
}
