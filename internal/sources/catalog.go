package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

// Catalog reads the remote documents listing available translations.
type Catalog struct {
	client         *http.Client
	userAgent      string
	catalogURL     string
	settingsAPIURL string
}

func NewCatalog(client *http.Client, userAgent, catalogURL, settingsAPIURL string) *Catalog {
	return &Catalog{
		client:         client,
		userAgent:      userAgent,
		catalogURL:     catalogURL,
		settingsAPIURL: strings.TrimRight(settingsAPIURL, "/"),
	}
}

// Translations returns the catalog document unchanged.
func (c *Catalog) Translations(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, c.catalogURL)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, apperror.New(apperror.KindInvalid, "translation catalog is not valid JSON").
			WithContext("url", c.catalogURL)
	}
	return json.RawMessage(body), nil
}

// BySetting asks the settings API for the link matching settingType.
// Responses that are a bare (optionally quoted) URL are wrapped as
// {"link": url}.
func (c *Catalog) BySetting(ctx context.Context, settingType string) (json.RawMessage, error) {
	if strings.TrimSpace(settingType) == "" {
		return nil, apperror.New(apperror.KindInvalid, "setting type is required")
	}
	endpoint := c.settingsAPIURL + "/" + url.PathEscape(settingType)
	log.Debug("[Sources] Requesting translation for setting %s", settingType)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(string(body))
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		return linkDocument(strings.Trim(text, `"`))
	}
	if json.Valid([]byte(text)) {
		return json.RawMessage(text), nil
	}
	return linkDocument(text)
}

func linkDocument(link string) (json.RawMessage, error) {
	return json.Marshal(map[string]string{"link": link})
}

func (c *Catalog) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindInvalid, "build request").WithContext("url", target)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindNetwork, "request failed").WithContext("url", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.New(apperror.KindNetwork, fmt.Sprintf("API returned error status: %s", resp.Status)).
			WithContext("url", target)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindNetwork, "read response").WithContext("url", target)
	}
	return body, nil
}
