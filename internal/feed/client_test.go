package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterFixture = `
<table>
  <tr><th>Bot</th><th>Realm</th><th>Map</th><th>Current Game</th><th>In Game</th></tr>
  <tr><td>bot1</td><td>USA</td><td>w3x</td><td>Age of Conquest RP night</td><td>3/12</td></tr>
  <tr><td>bot2</td><td>EUROPE</td><td>w3x</td><td>SotDRP new map</td><td>7/24</td></tr>
  <tr><td>broken</td><td>USA</td></tr>
  <tr><td>bot3</td><td>USA</td><td>w3x</td><td>DotA allstars</td><td>10/10</td></tr>
</table>`

func TestFetchParsesRoster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rosterFixture))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	rows, err := client.Fetch(context.Background())
	require.NoError(t, err)

	// The header and the malformed row are skipped, everything else is
	// returned as-is; classification is not the feed's job.
	require.Len(t, rows, 3)
	assert.Equal(t, Row{Account: "bot1", Realm: "USA", Name: "Age of Conquest RP night", Players: "3/12"}, rows[0])
	assert.Equal(t, Row{Account: "bot2", Realm: "EUROPE", Name: "SotDRP new map", Players: "7/24"}, rows[1])
	assert.Equal(t, "bot3", rows[2].Account)
}

func TestFetchEmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<table></table>"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	rows, err := client.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Fetch(context.Background())
	assert.Error(t, err)
}
