// Package instagram is a small Graph API client for the media feed, the
// connected business profile and artist profile pictures.
package instagram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tidwall/gjson"

	"tekkin/internal/config"
	appLog "tekkin/internal/log"
)

var (
	ErrMissingCredentials = errors.New("missing Instagram credentials")
	ErrNoBusinessAccount  = errors.New("no connected Instagram account found")
	ErrProfileNotFound    = errors.New("instagram profile not found")
)

const (
	mediaFields   = "id,caption,media_url,permalink,timestamp,media_type,username"
	profileFields = "username,profile_picture_url,followers_count,media_count"
	selfKey       = "@self"
	jsonType      = "application/json"
)

type Media struct {
	ID        string `json:"id"`
	Caption   string `json:"caption,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Username  string `json:"username,omitempty"`
}

type Profile struct {
	ID                string `json:"id,omitempty"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profile_picture_url,omitempty"`
	FollowersCount    int    `json:"followers_count"`
	MediaCount        int    `json:"media_count"`
}

// Client talks to graph.instagram.com (media of the token owner) and
// graph.facebook.com (business account and profile lookups). Profiles are
// cached for ProfileCacheTTL and failed lookups for ProfileMissTTL.
type Client struct {
	media      *resty.Client
	graph      *resty.Client
	token      string
	businessID string
	apiVersion string
	profiles   *expirable.LRU[string, Profile]
	misses     *expirable.LRU[string, error]
}

func NewClient(cfg config.InstagramConfig) *Client {
	size := cfg.ProfileCacheSize
	if size <= 0 {
		size = 256
	}
	ttl := cfg.ProfileCacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	missTTL := cfg.ProfileMissTTL
	if missTTL <= 0 {
		missTTL = 5 * time.Minute
	}
	return &Client{
		media:      newResty(cfg.MediaURL, cfg.Timeout),
		graph:      newResty(cfg.GraphURL, cfg.Timeout),
		token:      cfg.AccessToken,
		businessID: cfg.BusinessID,
		apiVersion: cfg.APIVersion,
		profiles:   expirable.NewLRU[string, Profile](size, nil, ttl),
		misses:     expirable.NewLRU[string, error](size, nil, missTTL),
	}
}

func newResty(baseURL string, timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetBaseURL(strings.TrimRight(baseURL, "/"))
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	c.SetHeader("Accept", jsonType)
	return c
}

// request starts a Graph call. The Graph API does not always label its JSON
// (text/javascript, or no Content-Type), so the result is decoded regardless.
func request(c *resty.Client, ctx context.Context) *resty.Request {
	return c.R().SetContext(ctx).ForceContentType(jsonType)
}

// Media returns the token owner's posts, optionally filtered by a caption
// substring (user) and a hashtag (tag).
func (c *Client) Media(ctx context.Context, user, tag string) ([]Media, error) {
	if c.token == "" {
		return nil, ErrMissingCredentials
	}

	var out struct {
		Data []Media `json:"data"`
	}
	resp, err := request(c.media, ctx).
		SetQueryParams(map[string]string{"fields": mediaFields, "access_token": c.token}).
		SetResult(&out).
		Get("/me/media")
	if err := graphError(resp, err); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []Media{}
	}
	return FilterMedia(out.Data, user, tag), nil
}

// FilterMedia keeps posts whose caption contains user and #tag, case
// insensitively. Empty filters match everything.
func FilterMedia(media []Media, user, tag string) []Media {
	user = strings.ToLower(strings.TrimSpace(user))
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))

	out := make([]Media, 0, len(media))
	for _, m := range media {
		caption := strings.ToLower(m.Caption)
		if user != "" && !strings.Contains(caption, user) {
			continue
		}
		if tag != "" && !strings.Contains(caption, "#"+tag) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Profile returns the Instagram account connected to the business page.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	if p, ok := c.profiles.Get(selfKey); ok {
		return p, nil
	}

	accountID, err := c.accountID(ctx)
	if err != nil {
		return Profile{}, err
	}

	var p Profile
	resp, err := request(c.graph, ctx).
		SetQueryParams(map[string]string{"fields": profileFields, "access_token": c.token}).
		SetResult(&p).
		Get(c.path(accountID))
	if err := graphError(resp, err); err != nil {
		return Profile{}, err
	}
	if p.Username == "" {
		return Profile{}, ErrProfileNotFound
	}
	c.profiles.Add(selfKey, p)
	return p, nil
}

// Lookup returns the public profile of another business or creator account
// through business discovery.
func (c *Client) Lookup(ctx context.Context, username string) (Profile, error) {
	username = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if username == "" {
		return Profile{}, errors.New("instagram: username is required")
	}
	if p, ok := c.profiles.Get(username); ok {
		return p, nil
	}
	if err, ok := c.misses.Get(username); ok {
		return Profile{}, err
	}

	p, err := c.discover(ctx, username)
	if err != nil {
		// Missing credentials and cancelled requests say nothing about the
		// account itself.
		if !errors.Is(err, ErrMissingCredentials) && ctx.Err() == nil {
			c.misses.Add(username, err)
		}
		return Profile{}, err
	}
	c.profiles.Add(username, p)
	return p, nil
}

func (c *Client) discover(ctx context.Context, username string) (Profile, error) {
	accountID, err := c.accountID(ctx)
	if err != nil {
		return Profile{}, err
	}

	var out struct {
		BusinessDiscovery Profile `json:"business_discovery"`
	}
	resp, err := request(c.graph, ctx).
		SetQueryParams(map[string]string{
			"fields":       fmt.Sprintf("business_discovery.username(%s){%s}", username, profileFields),
			"access_token": c.token,
		}).
		SetResult(&out).
		Get(c.path(accountID))
	if err := graphError(resp, err); err != nil {
		return Profile{}, err
	}
	if out.BusinessDiscovery.Username == "" {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, username)
	}
	return out.BusinessDiscovery, nil
}

// ProfilePicture returns the profile picture URL of username.
func (c *Client) ProfilePicture(ctx context.Context, username string) (string, error) {
	p, err := c.Lookup(ctx, username)
	if err != nil {
		return "", err
	}
	return p.ProfilePictureURL, nil
}

// accountID resolves the Instagram business account linked to the page.
func (c *Client) accountID(ctx context.Context) (string, error) {
	if c.token == "" || c.businessID == "" {
		return "", ErrMissingCredentials
	}

	resp, err := request(c.graph, ctx).
		SetQueryParams(map[string]string{"fields": "instagram_business_account", "access_token": c.token}).
		Get(c.path(c.businessID))
	if err := graphError(resp, err); err != nil {
		return "", err
	}
	id := gjson.GetBytes(resp.Body(), "instagram_business_account.id").String()
	if id == "" {
		return "", ErrNoBusinessAccount
	}
	return id, nil
}

func (c *Client) path(id string) string {
	if c.apiVersion == "" {
		return "/" + id
	}
	return "/" + c.apiVersion + "/" + id
}

// graphError turns transport failures and Graph error payloads into errors.
func graphError(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("instagram: %w", err)
	}
	if !resp.IsError() {
		return nil
	}
	msg := gjson.GetBytes(resp.Body(), "error.message").String()
	if msg == "" {
		msg = "Instagram API error"
	}
	appLog.Debug("instagram api error", "status", resp.StatusCode(), "message", msg)
	return fmt.Errorf("instagram: %s (status %d)", msg, resp.StatusCode())
}
