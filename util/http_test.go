package util

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRobustHTTPClientRetries(t *testing.T) {
	assert := assert.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := RobustHTTPClient(WithRetryWait(time.Millisecond, 5*time.Millisecond))
	resp, err := client.Get(srv.URL)
	assert.NoError(err)
	if resp != nil {
		resp.Body.Close()
		assert.Equal(http.StatusOK, resp.StatusCode)
	}
	assert.Equal(int32(3), calls.Load())
}

func TestRobustHTTPClientNoRetryOnClientError(t *testing.T) {
	assert := assert.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := RobustHTTPClient(WithMaxRetries(2), WithRetryWait(time.Millisecond, time.Millisecond))
	resp, err := client.Get(srv.URL)
	assert.NoError(err)
	if resp != nil {
		resp.Body.Close()
		assert.Equal(http.StatusBadRequest, resp.StatusCode)
	}
	assert.Equal(int32(1), calls.Load())
}
