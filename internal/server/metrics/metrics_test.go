// internal/server/metrics/metrics_test.go
package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/constants"
	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/models"
)

func TestEngineCallbacksCount(t *testing.T) {
	m := New()
	cb := m.EngineCallbacks()

	g := &models.Game{Status: constants.GamePlaying}
	cb.OnGameStarted(g)
	cb.OnDiceRolled(g, 6, false)
	cb.OnDiceRolled(g, 6, false)
	cb.OnDiceRolled(g, 2, true)
	g.Status = constants.GameEnded
	cb.OnGameOver(g)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DiceRolls.WithLabelValues("6")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiceRolls.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Games.WithLabelValues("playing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Games.WithLabelValues("ended")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveRequest("dice:roll", "ok", 5*time.Millisecond)
	m.Connections.Inc()
	lanes := 3
	m.RegisterLanes(func() int { return lanes })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `ludo_requests_total{event="dice:roll",result="ok"} 1`)
	assert.Contains(t, string(body), "ludo_connections 1")
	assert.Contains(t, string(body), "ludo_queue_lanes 3")
}
