package xtream

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/couchgate/couchgate/internal/models"
)

// Supported player_api actions.
const (
	actionLiveCategories   = "get_live_categories"
	actionLiveStreams      = "get_live_streams"
	actionVODCategories    = "get_vod_categories"
	actionVODStreams       = "get_vod_streams"
	actionSeriesCategories = "get_series_categories"
	actionSeries           = "get_series"
	actionSeriesInfo       = "get_series_info"
	actionVODInfo          = "get_vod_info"
	actionShortEPG         = "get_short_epg"
)

// Catalog is a thin typed wrapper over Client for the read actions. Each
// method forwards the provider's JSON unchanged; catalog schemas drift
// between providers and reshaping them here would break clients that rely
// on provider-specific fields.
type Catalog struct {
	client *Client
}

func NewCatalog(client *Client) *Catalog {
	return &Catalog{client: client}
}

func (c *Catalog) AccountInfo(ctx context.Context, creds *models.ProviderCredentials) (json.RawMessage, error) {
	return c.client.Call(ctx, creds, "", nil)
}

func (c *Catalog) LiveCategories(ctx context.Context, creds *models.ProviderCredentials) (json.RawMessage, error) {
	return c.client.Call(ctx, creds, actionLiveCategories, nil)
}

func (c *Catalog) LiveStreams(ctx context.Context, creds *models.ProviderCredentials, categoryID string) (json.RawMessage, error) {
	return c.client.Call(ctx, creds, actionLiveStreams, categoryParam(categoryID))
}

func (c *Catalog) VODCategories(ctx context.Context, creds *models.ProviderCredentials) (json.RawMessage, error) {
	return c.client.Call(ctx, creds, actionVODCategories, nil)
}

func (c *Catalog) VODStreams(ctx context.Context, creds *models.ProviderCredentials, categoryID string) (json.RawMessage, error) {
	return c.client.Call(ctx, creds, actionVODStreams, categoryParam(categoryID))
}

func (c *Catalog) SeriesCategories(ctx context.Context, creds *models.ProviderCredentials) (json.RawMessage, error) {
	return c.client.Call(ctx, creds, actionSeriesCategories, nil)
}

func (c *Catalog) Series(ctx context.Context, creds *models.ProviderCredentials, categoryID string) (json.RawMessage, error) {
	return c.client.Call(ctx, creds, actionSeries, categoryParam(categoryID))
}

func (c *Catalog) SeriesInfo(ctx context.Context, creds *models.ProviderCredentials, seriesID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("series_id", seriesID)
	return c.client.Call(ctx, creds, actionSeriesInfo, params)
}

func (c *Catalog) VODInfo(ctx context.Context, creds *models.ProviderCredentials, vodID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("vod_id", vodID)
	return c.client.Call(ctx, creds, actionVODInfo, params)
}

func (c *Catalog) ShortEPG(ctx context.Context, creds *models.ProviderCredentials, streamID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("stream_id", streamID)
	return c.client.Call(ctx, creds, actionShortEPG, params)
}

func categoryParam(categoryID string) url.Values {
	if categoryID == "" {
		return nil
	}
	params := url.Values{}
	params.Set("category_id", categoryID)
	return params
}
