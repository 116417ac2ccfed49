package store

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/wbverify/pkg/sparql"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

func titleUpdate(value string) sparql.Update {
	u := sparql.Var("u")
	return sparql.Update{
		Insert: []sparql.Triple{sparql.T(u, sparql.PName("nie:title"), sparql.Literal(value))},
		Where:  []sparql.Triple{sparql.T(u, sparql.NIEURL, sparql.Literal("file:///tmp/a.jpeg"))},
	}
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(Options{Endpoint: "  "})
	assert.ErrorIs(t, err, ErrEndpointEmpty)
}

func TestClient_UpdatePostsQuery(t *testing.T) {
	var (
		gotMethod, gotType, gotBody string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(Options{Endpoint: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	u := titleUpdate(`say "hi"`)
	require.NoError(t, client.Update(context.Background(), u))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/sparql-update", gotType)
	assert.Equal(t, u.String(), gotBody)
	assert.Contains(t, gotBody, `"say \"hi\""`)
}

func TestClient_UpdateRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Parser error at byte 12", http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Options{Endpoint: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	err = client.Update(context.Background(), titleUpdate("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrQueryRejected)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, http.StatusBadRequest, qe.Status)
	assert.Equal(t, "Parser error at byte 12", qe.Message)
	assert.Contains(t, qe.Query, "INSERT")
}

func TestClient_UpdateRejectedLongMessage(t *testing.T) {
	body := strings.Repeat("ü", 400)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, body, http.StatusBadRequest)
	}))
	defer server.Close()

	client, err := NewClient(Options{Endpoint: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	var qe *QueryError
	require.ErrorAs(t, client.Update(context.Background(), titleUpdate("x")), &qe)
	assert.True(t, utf8.ValidString(qe.Message))
	assert.True(t, strings.HasSuffix(qe.Message, "..."))
	assert.LessOrEqual(t, len(qe.Message), 512+len("..."))
}

func TestClient_InvalidUpdateNotSent(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client, err := NewClient(Options{Endpoint: server.URL, HTTPClient: server.Client()})
	require.NoError(t, err)

	err = client.Update(context.Background(), sparql.Update{})
	assert.ErrorIs(t, err, sparql.ErrEmptyUpdate)
	assert.False(t, called)
}

func TestClient_CollaboratorDown(t *testing.T) {
	// Reserve a port, then close the listener so nothing accepts on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client, err := NewClient(Options{Endpoint: "http://" + addr})
	require.NoError(t, err)

	err = client.Update(context.Background(), titleUpdate("x"))
	assert.ErrorIs(t, err, types.ErrCollaboratorDown)
}
