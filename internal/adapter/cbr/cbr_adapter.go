package cbr

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/sirupsen/logrus"
)

// RequestDateLayout is the date format of the date_req query parameter.
const RequestDateLayout = "02/01/2006"

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				ResponseHeaderTimeout: timeout,
			},
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

func (c *Client) FetchRates(ctx context.Context, date string) (*ValCurs, error) {
	endpoint := fmt.Sprintf("%s/XML_daily.asp?date_req=%s", c.baseURL, url.QueryEscape(date))
	c.logger.Infof("Fetching rates from URL: %s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// the endpoint rejects clients without browser-like headers
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Error("Failed to fetch CBR sheet")
		return nil, fmt.Errorf("fetch error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Errorf("Unexpected CBR response, %d bytes", len(body))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}

	valCurs, err := c.decode(body)
	if err != nil {
		c.logger.WithError(err).Debugf("First 500 chars: %s", string(body)[:min(500, len(body))])
		return nil, fmt.Errorf("parse XML: %w", err)
	}

	if len(valCurs.Valutes) == 0 {
		c.logger.Warn("No valutes found in parsed response")
	}
	c.logger.Infof("Successfully parsed %d currencies for %s", len(valCurs.Valutes), valCurs.Date)

	return valCurs, nil
}

func (c *Client) decode(body []byte) (*ValCurs, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charsetReader

	var valCurs ValCurs
	if err := decoder.Decode(&valCurs); err != nil {
		return nil, err
	}
	return &valCurs, nil
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "utf-8", "utf8":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset: %s", charset)
}
