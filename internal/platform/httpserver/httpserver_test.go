package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	srv := New(":10222", http.NewServeMux())

	assert.Equal(t, ":10222", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.GreaterOrEqual(t, srv.WriteTimeout, time.Minute,
		"mutation responses block on a reconciliation pass and must not be cut off")
}
