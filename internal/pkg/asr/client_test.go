package asr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInit_FailOnWrongURL(t *testing.T) {
	_, err := NewClient("http://")
	assert.NotNil(t, err)
	_, err = NewClient("")
	assert.NotNil(t, err)
}

func TestInit(t *testing.T) {
	c, err := NewClient("http://localhost:8000")
	assert.Nil(t, err)
	assert.NotNil(t, c)
}

func TestTranscribe(t *testing.T) {
	var resp Result
	resp.Duration = 10
	resp.Segments = []Segment{{Start: 0, End: 2, Text: "Hej",
		Words: []Word{{Start: 0, End: 2, Word: "Hej"}}}}
	rb, _ := json.Marshal(resp)
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "POST", req.Method)
		assert.Equal(t, "/transcribe", req.URL.Path)
		req.ParseMultipartForm(32 << 20)
		_, handler, _ := req.FormFile("file")
		assert.Equal(t, "1.wav", handler.Filename)
		assert.Equal(t, "base", req.FormValue("model"))
		assert.Equal(t, "sv", req.FormValue("language"))
		rw.WriteHeader(200)
		rw.Write(rb)
	}))
	defer server.Close()
	c, _ := NewClient(server.URL)
	c.httpclient = server.Client()

	r, err := c.Transcribe(context.Background(), "1.wav", strings.NewReader("olia"),
		Options{Model: "base", Language: "sv"})

	assert.Nil(t, err)
	assert.Equal(t, 10.0, r.Duration)
	assert.Equal(t, 1, len(r.Segments))
	assert.Equal(t, "Hej", r.Segments[0].Text)
}

func TestTranscribe_Fail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(500)
	}))
	defer server.Close()
	c, _ := NewClient(server.URL)
	c.httpclient = server.Client()

	_, err := c.Transcribe(context.Background(), "1.wav", strings.NewReader("olia"), Options{})

	assert.NotNil(t, err)
}
