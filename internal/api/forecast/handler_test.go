package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"phi/internal/domain/persona"
	"phi/internal/domain/prediction"
	forecastsvc "phi/internal/services/forecast"
	"phi/pkg/errors"
)

type MockPersonas struct{ mock.Mock }

func (m *MockPersonas) Get(ctx context.Context, userID string) (*persona.Persona, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*persona.Persona)
	return p, args.Error(1)
}

func (m *MockPersonas) Upsert(ctx context.Context, p *persona.Persona) (*persona.Persona, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*persona.Persona)
	return out, args.Error(1)
}

type MockForecaster struct{ mock.Mock }

func (m *MockForecaster) Predict(ctx context.Context, req forecastsvc.Request) (*prediction.Prediction, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*prediction.Prediction)
	return p, args.Error(1)
}

func (m *MockForecaster) ListByUser(ctx context.Context, userID string) ([]*prediction.Prediction, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).([]*prediction.Prediction)
	return p, args.Error(1)
}

func (m *MockForecaster) ListByEvent(ctx context.Context, eventID string) ([]*prediction.Prediction, error) {
	args := m.Called(ctx, eventID)
	p, _ := args.Get(0).([]*prediction.Prediction)
	return p, args.Error(1)
}

func newServer(t *testing.T) (*httptest.Server, *MockPersonas, *MockForecaster) {
	t.Helper()
	personas := &MockPersonas{}
	forecaster := &MockForecaster{}

	mux := http.NewServeMux()
	NewHandler(personas, forecaster).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, personas, forecaster
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestPredict(t *testing.T) {
	srv, _, forecaster := newServer(t)

	seed := 0.437
	pred := &prediction.Prediction{
		ID:            uuid.New(),
		UserID:        "alice",
		EventID:       "BTC_24h",
		ProbabilityUp: 0.58,
		Confidence:    0.73,
		RiskTier:      prediction.TierMedium,
		Seed:          seed,
		Source:        prediction.SourceFallback,
	}
	forecaster.On("Predict", mock.Anything, forecastsvc.Request{UserID: "alice", EventID: "BTC_24h", Seed: &seed}).
		Return(pred, nil)

	resp, body := do(t, http.MethodPost, srv.URL+"/predict", `{"userId":"alice","eventId":"BTC_24h","seed":0.437}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, pred.ID.String(), body["id"])
	assert.Equal(t, 0.58, body["probabilityUp"])
	assert.Equal(t, "fallback", body["source"])
	assert.Nil(t, body["txHash"])
	forecaster.AssertExpectations(t)
}

func TestPredict_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", errors.NewValidationError("eventId", "must match", "bad id"), http.StatusBadRequest},
		{"persona missing", errors.Wrap(errors.ErrNotFound, "get persona"), http.StatusNotFound},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"store failure", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, forecaster := newServer(t)
			forecaster.On("Predict", mock.Anything, mock.Anything).Return(nil, tt.err)

			resp, body := do(t, http.MethodPost, srv.URL+"/predict", `{"userId":"alice","eventId":"BTC_24h"}`)

			assert.Equal(t, tt.code, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPredict_InvalidBody(t *testing.T) {
	srv, _, forecaster := newServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/predict", `{"userId":`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid JSON body")
	forecaster.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything)
}

func TestPersonaRoutes(t *testing.T) {
	srv, personas, _ := newServer(t)

	saved := &persona.Persona{UserID: "alice", RiskTolerance: persona.RiskMedium, Horizon: persona.Horizon24h}
	personas.On("Upsert", mock.Anything, mock.MatchedBy(func(p *persona.Persona) bool {
		return p.UserID == "alice" && p.RiskTolerance == persona.RiskMedium
	})).Return(saved, nil)
	personas.On("Get", mock.Anything, "alice").Return(saved, nil)
	personas.On("Get", mock.Anything, "bob").Return(nil, errors.Wrap(errors.ErrNotFound, "get persona"))

	resp, body := do(t, http.MethodPost, srv.URL+"/persona/update",
		`{"userId":"alice","riskTolerance":"medium","markets":["btc"],"horizon":"24h"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["userId"])

	resp, body = do(t, http.MethodGet, srv.URL+"/persona/alice", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "24h", body["horizon"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/persona/bob", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPersonaUpdate_ValidationField(t *testing.T) {
	srv, personas, _ := newServer(t)
	personas.On("Upsert", mock.Anything, mock.Anything).
		Return(nil, errors.NewValidationError("horizon", "must be one of 24h, 7d, 30d", "1y"))

	resp, body := do(t, http.MethodPost, srv.URL+"/persona/update", `{"userId":"alice","horizon":"1y"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "horizon", body["field"])
}

func TestListRoutes(t *testing.T) {
	srv, _, forecaster := newServer(t)

	newer := &prediction.Prediction{ID: uuid.New(), UserID: "alice", EventID: "BTC_24h"}
	older := &prediction.Prediction{ID: uuid.New(), UserID: "alice", EventID: "ETH_7d"}
	forecaster.On("ListByUser", mock.Anything, "alice").Return([]*prediction.Prediction{newer, older}, nil)
	forecaster.On("ListByEvent", mock.Anything, "BTC_24h").Return([]*prediction.Prediction{newer}, nil)

	resp, body := do(t, http.MethodGet, srv.URL+"/predictions/alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := body["predictions"].([]interface{})
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID.String(), list[0].(map[string]interface{})["id"])

	resp, body = do(t, http.MethodGet, srv.URL+"/predictions/by-event/BTC_24h", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["predictions"], 1)
	forecaster.AssertExpectations(t)
}
