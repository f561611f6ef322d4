package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImgBB_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k123", r.URL.Query().Get("key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg")), r.PostForm.Get("image"))
		w.Write([]byte(`{"success":true,"data":{"url":"https://i.ibb.co/x.jpg"}}`))
	}))
	defer srv.Close()

	c := NewImgBB("k123", srv.URL, srv.Client())
	url, err := c.Upload(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/x.jpg", url)
}

func TestImgBB_Upload_rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	_, err := NewImgBB("k", srv.URL, srv.Client()).Upload(context.Background(), []byte("jpeg"))
	assert.Error(t, err)
}

func TestImgBB_Upload_http_error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewImgBB("k", srv.URL, srv.Client()).Upload(context.Background(), []byte("jpeg"))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "bad key", se.Body)
}

func TestImgBB_not_configured(t *testing.T) {
	for _, key := range []string{"", "在這裡貼上你的 ImgBB API Key", "YOUR_KEY"} {
		c := NewImgBB(key, "http://127.0.0.1:1", nil)
		assert.False(t, c.Configured(), key)
		_, err := c.Upload(context.Background(), []byte("x"))
		assert.True(t, errors.Is(err, ErrNotConfigured), key)
	}
}
