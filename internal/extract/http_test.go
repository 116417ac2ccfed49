package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/wbverify/pkg/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{Endpoint: server.URL + "/", HTTPClient: server.Client()})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(Options{})
	assert.ErrorIs(t, err, ErrEndpointEmpty)
}

func TestClient_GetMetadata(t *testing.T) {
	var got metadataRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/metadata", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"metadata":{"nie:title":["nietitletest"],"nao:hasTag:prefLabel":["a","testTag"]}}`))
	})

	md, err := client.GetMetadata(context.Background(), "file:///tmp/x.jpeg", types.MediaJPEG)
	require.NoError(t, err)
	assert.Equal(t, metadataRequest{URI: "file:///tmp/x.jpeg", MimeType: types.MediaJPEG}, got)

	title, ok := md.First(types.PropTitle)
	assert.True(t, ok)
	assert.Equal(t, "nietitletest", title)
	assert.True(t, md.Contains(types.KeyTagLabel, "testTag"))
}

func TestClient_GetMetadataEmpty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"metadata":{}}`))
	})
	md, err := client.GetMetadata(context.Background(), "file:///tmp/x.png", types.MediaPNG)
	require.NoError(t, err)
	_, ok := md.First(types.PropTitle)
	assert.False(t, ok)
}

func TestClient_GetMetadataInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing metadata", `{"data":{}}`},
		{"scalar value", `{"metadata":{"nie:title":"nietitletest"}}`},
		{"non string item", `{"metadata":{"nie:title":[1]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.GetMetadata(context.Background(), "file:///tmp/x.jpeg", types.MediaJPEG)
			assert.ErrorIs(t, err, types.ErrInvalidMetadata)
		})
	}
}

func TestClient_GetMetadataStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, types.ErrFileNotFound},
		{http.StatusUnsupportedMediaType, types.ErrUnsupportedMedia},
		{http.StatusInternalServerError, types.ErrTransportFault},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			})
			_, err := client.GetMetadata(context.Background(), "file:///tmp/x.jpeg", types.MediaJPEG)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}
