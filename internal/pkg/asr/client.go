package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/utils"
	"github.com/pkg/errors"
)

// Result keeps speech recognition output
type Result struct {
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// Segment is one recognized phrase
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Word keeps word level timestamps
type Word struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Word        string  `json:"word"`
	Probability float64 `json:"probability"`
}

// Options selects model and language for recognition
type Options struct {
	Model    string
	Language string
}

// Client comunicates with the speech recognition service
type Client struct {
	httpclient *http.Client
	url        string
}

// NewClient creates a speech recognition client
func NewClient(urlStr string) (*Client, error) {
	res := Client{}
	urlRes, err := url.Parse(urlStr)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse url "+urlStr)
	}
	if urlRes.Host == "" {
		return nil, errors.New("Can't parse url " + urlStr)
	}
	res.url = urlRes.String()
	res.httpclient = &http.Client{}
	return &res, nil
}

// Transcribe sends the audio and returns recognized segments with words
func (c *Client) Transcribe(ctx context.Context, name string, file io.Reader, opt Options) (*Result, error) {
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
	if opt.Model != "" {
		writer.WriteField("model", opt.Model)
	}
	if opt.Language != "" {
		writer.WriteField("language", opt.Language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", utils.URLJoin(c.url, "transcribe"), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	cmdapp.Log.Debugf("Sending audio to: %s", c.url)
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, err
	}
	var respData Result
	err = json.NewDecoder(resp.Body).Decode(&respData)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode response")
	}
	return &respData, nil
}
