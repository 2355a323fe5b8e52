package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/intervju/skriba/internal/pkg/cmdapp"
	"github.com/intervju/skriba/internal/pkg/utils"
	"github.com/pkg/errors"
)

// Entity is one named entity returned by the recognition service
type Entity struct {
	Word        string  `json:"word"`
	EntityGroup string  `json:"entity_group"`
	Score       float64 `json:"score"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

// Client comunicates with the named entity recognition service
type Client struct {
	httpclient *http.Client
	url        string
}

// NewClient creates a named entity recognition client.
// Returns nil without error when url is empty, the capability is then off
func NewClient(urlStr string) (*Client, error) {
	if urlStr == "" {
		return nil, nil
	}
	urlRes, err := url.Parse(urlStr)
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse url "+urlStr)
	}
	if urlRes.Host == "" {
		return nil, errors.New("Can't parse url " + urlStr)
	}
	res := Client{url: urlRes.String(), httpclient: &http.Client{}}
	return &res, nil
}

// Recognize returns entities found in the text
func (c *Client) Recognize(ctx context.Context, text string) ([]Entity, error) {
	reqData := struct {
		Text string `json:"text"`
	}{Text: text}
	b, err := json.Marshal(reqData)
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, "POST", utils.URLJoin(c.url, "ner"), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	cmdapp.Log.Debugf("Sending text to: %s", c.url)
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := utils.ValidateResponse(resp); err != nil {
		return nil, err
	}
	var respData struct {
		Entities []Entity `json:"entities"`
	}
	err = json.NewDecoder(resp.Body).Decode(&respData)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode response")
	}
	return respData.Entities, nil
}
