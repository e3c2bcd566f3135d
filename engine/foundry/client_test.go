package foundry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
)

func newStatusServer(t *testing.T, code int, body string, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/api/status" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write([]byte(body))
	}))
}

func TestGetStatusActive(t *testing.T) {
	var hits int32
	srv := newStatusServer(t, 200, `{"active":true,"version":"11","world":"w1","system":"dnd5e","systemVersion":"3","users":0,"uptime":10}`, &hits)
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	assert.Equal(t, srv.URL, c.BaseURL())
	st, err := c.GetStatus(context.Background())
	assert.Equal(t, nil, err)
	assert.T(t, st.IsActive())
	assert.Equal(t, "w1", st.Active.World)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestGetStatusNon2xx(t *testing.T) {
	var hits int32
	srv := newStatusServer(t, 503, `{"active":false,"version":"11"}`, &hits)
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).GetStatus(context.Background())
	se, ok := err.(*StatusError)
	assert.T(t, ok, "should be a StatusError", err)
	assert.Equal(t, 503, se.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "no retry expected")
}

func TestGetStatusMalformed(t *testing.T) {
	var hits int32
	srv := newStatusServer(t, 200, `{"active":true,"version":"11"}`, &hits)
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).GetStatus(context.Background())
	_, ok := err.(*StatusError)
	assert.T(t, ok, "should be a StatusError", err)
}

func TestGetStatusUnreachable(t *testing.T) {
	var hits int32
	srv := newStatusServer(t, 200, `{}`, &hits)
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).GetStatus(context.Background())
	se, ok := err.(*StatusError)
	assert.T(t, ok, "should be a StatusError", err)
	assert.Equal(t, 0, se.StatusCode)
	assert.T(t, errors.Cause(err) != err, "cause should be the transport error")
}

func TestGetStatusTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, 100*time.Millisecond).GetStatus(context.Background())
	assert.T(t, err != nil, "should time out")
	assert.T(t, time.Since(start) < 5*time.Second, "timeout not honored")
}

func TestGetStatusContextCanceled(t *testing.T) {
	var hits int32
	srv := newStatusServer(t, 200, `{"active":false,"version":"11"}`, &hits)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, time.Second).GetStatus(ctx)
	assert.T(t, err != nil, "canceled context should fail")
}
