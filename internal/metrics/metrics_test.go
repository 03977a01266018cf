package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/games/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/games/:id", "418"))

	for _, id := range []string{"1", "2", "3"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/games/"+id, nil))
		require.Equal(t, http.StatusTeapot, w.Code)
	}

	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/games/:id", "418"))
	assert.Equal(t, before+3, after)
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(loanTransitions.WithLabelValues("loan.created"))
	RecordLoanTransition("loan.created")
	assert.Equal(t, before+1, testutil.ToFloat64(loanTransitions.WithLabelValues("loan.created")))

	RecordTokenIssued("access")
	RecordJobRun("token_purge", 20*time.Millisecond, true)
	assert.GreaterOrEqual(t, testutil.ToFloat64(jobRuns.WithLabelValues("token_purge", "true")), 1.0)
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RecordTokenIssued("refresh")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "gameshelf_auth_tokens_issued_total"))
}
