package asr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiarizer_OffOnNoURL(t *testing.T) {
	d, err := NewDiarizer("", "")
	assert.Nil(t, err)
	assert.Nil(t, d)
}

func TestDiarizer_FailOnNoToken(t *testing.T) {
	_, err := NewDiarizer("http://localhost:8001", "")
	assert.NotNil(t, err)
}

func TestDiarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/diarize", req.URL.Path)
		assert.Equal(t, "Bearer token", req.Header.Get("Authorization"))
		rw.WriteHeader(200)
		rw.Write([]byte(`{"turns": [{"start": 0, "end": 2.5, "speaker": "SPEAKER_00"}]}`))
	}))
	defer server.Close()
	d, err := NewDiarizer(server.URL, "token")
	assert.Nil(t, err)
	d.httpclient = server.Client()

	turns, err := d.Diarize(context.Background(), "1.wav", strings.NewReader("olia"))

	assert.Nil(t, err)
	assert.Equal(t, 1, len(turns))
	assert.Equal(t, "SPEAKER_00", turns[0].Speaker)
}

func TestSpeakerName(t *testing.T) {
	assert.Equal(t, "Talare 1", SpeakerName("SPEAKER_00"))
	assert.Equal(t, "Talare 2", SpeakerName("SPEAKER_01"))
	assert.Equal(t, "Talare 12", SpeakerName("SPEAKER_11"))
	assert.Equal(t, "olia", SpeakerName("olia"))
}
