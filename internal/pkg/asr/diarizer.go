package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/utils"
	"github.com/pkg/errors"
)

// Turn is one speaker turn of the diarization output
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// Diarizer comunicates with the speaker diarization service
type Diarizer struct {
	httpclient *http.Client
	url        string
	token      string
}

// NewDiarizer creates a diarization client.
// Returns nil without error when url is empty, the capability is then off
func NewDiarizer(urlStr, token string) (*Diarizer, error) {
	if urlStr == "" {
		return nil, nil
	}
	if token == "" {
		return nil, errors.New("No diarization token provided")
	}
	urlRes, err := url.Parse(urlStr)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse url "+urlStr)
	}
	if urlRes.Host == "" {
		return nil, errors.New("Can't parse url " + urlStr)
	}
	res := Diarizer{url: urlRes.String(), token: token, httpclient: &http.Client{}}
	return &res, nil
}

// Diarize sends the audio and returns speaker turns
func (c *Diarizer) Diarize(ctx context.Context, name string, file io.Reader) ([]Turn, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, errors.Wrap(err, "Can't add file to request")
	}
	_, err = io.Copy(part, file)
	if err != nil {
		return nil, errors.Wrap(err, "Can't add file to request")
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", utils.URLJoin(c.url, "diarize"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	cmdapp.Log.Debugf("Sending audio to: %s", c.url)
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, err
	}
	var respData struct {
		Turns []Turn `json:"turns"`
	}
	err = json.NewDecoder(resp.Body).Decode(&respData)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode response")
	}
	return respData.Turns, nil
}

var speakerLabelRegexp = regexp.MustCompile(`^SPEAKER_(\d+)$`)

// SpeakerName maps a diarization label like SPEAKER_00 to a readable name
func SpeakerName(label string) string {
	groups := speakerLabelRegexp.FindStringSubmatch(label)
	if groups == nil {
		return label
	}
	n, err := strconv.Atoi(groups[1])
	if err != nil {
		return label
	}
	return fmt.Sprintf("Talare %d", n+1)
}
