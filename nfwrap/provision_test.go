package nfwrap

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provisioner(url string) *DispatcherProvisioner {
	return NewDispatcherProvisioner(ProvisionerConfig{
		URL:        url,
		StorageGiB: 100,
		Timeout:    5 * time.Second,
	})
}

func TestProvision(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/provision-storage", r.URL.Path)
		assert.Equal(t, "Latch-Execution-Token exec-token", r.Header.Get("Authorization"))

		body, err := ioutil.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"storage_gib": 100}`, string(body))

		w.Write([]byte(`{"name": "pvc-7f3a"}`))
	}))
	defer server.Close()

	name, err := provisioner(server.URL+"/provision-storage").Provision(context.Background(), "exec-token")
	require.NoError(t, err)
	assert.Equal(t, "pvc-7f3a", name)
	assert.Equal(t, 1, calls)
}

func TestProvisionMissingToken(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := provisioner(server.URL).Provision(context.Background(), "")
	var confErr *ConfigurationError
	assert.True(t, errors.As(err, &confErr))
	assert.False(t, called)
}

func TestProvisionErrorStatusIsNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("dispatcher overloaded"))
	}))
	defer server.Close()

	_, err := provisioner(server.URL).Provision(context.Background(), "exec-token")
	var provErr *ProvisioningError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusServiceUnavailable, provErr.StatusCode)
	assert.Contains(t, err.Error(), "dispatcher overloaded")
	assert.Equal(t, 1, calls)
}

func TestProvisionBadResponse(t *testing.T) {
	for _, body := range []string{`{}`, `{"name": ""}`, `not json`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		_, err := provisioner(server.URL).Provision(context.Background(), "exec-token")
		server.Close()

		var provErr *ProvisioningError
		assert.True(t, errors.As(err, &provErr), body)
	}
}

func TestProvisionUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := provisioner(url).Provision(context.Background(), "exec-token")
	var provErr *ProvisioningError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, 0, provErr.StatusCode)
}

func TestProvisionRequestShape(t *testing.T) {
	b, err := json.Marshal(provisionRequest{StorageGiB: 100})
	require.NoError(t, err)
	assert.Equal(t, `{"storage_gib":100}`, string(b))
}
