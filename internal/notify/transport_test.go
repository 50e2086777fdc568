package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factoryop/platform/internal/config"
)

func TestWhatsAppTransport_SendsAuthorizedPOST(t *testing.T) {
	var gotAuth, gotBody, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	transport := newWhatsAppTransport(config.WhatsAppConfig{
		APIBaseURL: srv.URL,
		APIToken:   "secret-token",
		FromPhone:  "+15550100",
	})

	err := transport.Send(context.Background(), "+15550199", "overheat", "temperature exceeded threshold")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "/messages", gotPath)
	assert.Contains(t, gotBody, "+15550199")
	assert.Contains(t, gotBody, "overheat")
}

func TestWhatsAppTransport_ErrorsOnNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	transport := newWhatsAppTransport(config.WhatsAppConfig{APIBaseURL: srv.URL})
	err := transport.Send(context.Background(), "+15550199", "subject", "body")
	assert.Error(t, err)
}
