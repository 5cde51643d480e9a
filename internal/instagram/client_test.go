package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tekkin/internal/config"
)

type graphStub struct {
	srv     *httptest.Server
	profile atomic.Int32
}

func newGraphStub(t *testing.T) *graphStub {
	return newGraphStubServing(t, "application/json")
}

// newGraphStubServing answers with the given Content-Type. An empty one leaves
// net/http to sniff it, which yields text/plain for JSON bodies.
func newGraphStubServing(t *testing.T, contentType string) *graphStub {
	t.Helper()
	g := &graphStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/me/media", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "token" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token."}}`)
			return
		}
		assert.Equal(t, mediaFields, r.URL.Query().Get("fields"))
		fmt.Fprint(w, `{"data":[
			{"id":"1","caption":"Cloonee at Fabric #TekkinSpotlight","media_url":"https://cdn.example/1.jpg"},
			{"id":"2","caption":"Studio day #tekkinspotlight"},
			{"id":"3","caption":"Cloonee b2b"},
			{"id":"4"}
		]}`)
	})
	mux.HandleFunc("/v21.0/page-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"instagram_business_account":{"id":"ig-1"},"id":"page-1"}`)
	})
	mux.HandleFunc("/v21.0/page-unlinked", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"page-unlinked"}`)
	})
	mux.HandleFunc("/v21.0/ig-1", func(w http.ResponseWriter, r *http.Request) {
		g.profile.Add(1)
		fields := r.URL.Query().Get("fields")
		if fields == profileFields {
			fmt.Fprint(w, `{"id":"ig-1","username":"tekkin.music","profile_picture_url":"https://cdn.example/tekkin.jpg","followers_count":1200,"media_count":87}`)
			return
		}
		if fields == "business_discovery.username(cloonee){"+profileFields+"}" {
			fmt.Fprint(w, `{"id":"ig-1","business_discovery":{"username":"cloonee","profile_picture_url":"https://cdn.example/cloonee.jpg","followers_count":500000,"media_count":900}}`)
			return
		}
		if fields == "business_discovery.username(ghost){"+profileFields+"}" {
			fmt.Fprint(w, `{"id":"ig-1"}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Invalid user id"}}`)
	})
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *graphStub) config(token, business string) config.InstagramConfig {
	return config.InstagramConfig{
		AccessToken:      token,
		BusinessID:       business,
		MediaURL:         g.srv.URL,
		GraphURL:         g.srv.URL,
		APIVersion:       "v21.0",
		Timeout:          time.Second,
		ProfileCacheTTL:  time.Minute,
		ProfileCacheSize: 8,
	}
}

func ids(media []Media) []string {
	out := make([]string, 0, len(media))
	for _, m := range media {
		out = append(out, m.ID)
	}
	return out
}

func TestMedia(t *testing.T) {
	g := newGraphStub(t)
	c := NewClient(g.config("token", ""))
	ctx := context.Background()

	all, err := c.Media(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(all))

	byUser, err := c.Media(ctx, "CLOONEE", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(byUser))

	byTag, err := c.Media(ctx, "", "tekkinspotlight")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(byTag))

	both, err := c.Media(ctx, "cloonee", "#TekkinSpotlight")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(both))
}

func TestMediaErrors(t *testing.T) {
	g := newGraphStub(t)

	_, err := NewClient(g.config("", "")).Media(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewClient(g.config("wrong", "")).Media(context.Background(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token.")
}

func TestProfile(t *testing.T) {
	g := newGraphStub(t)
	c := NewClient(g.config("token", "page-1"))

	p, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Profile{
		ID:                "ig-1",
		Username:          "tekkin.music",
		ProfilePictureURL: "https://cdn.example/tekkin.jpg",
		FollowersCount:    1200,
		MediaCount:        87,
	}, p)

	_, err = c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), g.profile.Load())
}

func TestProfileErrors(t *testing.T) {
	g := newGraphStub(t)

	_, err := NewClient(g.config("token", "")).Profile(context.Background())
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewClient(g.config("token", "page-unlinked")).Profile(context.Background())
	assert.ErrorIs(t, err, ErrNoBusinessAccount)
}

func TestProfilePictureIsCached(t *testing.T) {
	g := newGraphStub(t)
	c := NewClient(g.config("token", "page-1"))
	ctx := context.Background()

	pic, err := c.ProfilePicture(ctx, "@Cloonee")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/cloonee.jpg", pic)

	pic, err = c.ProfilePicture(ctx, "cloonee")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/cloonee.jpg", pic)
	assert.Equal(t, int32(1), g.profile.Load())

	_, err = c.ProfilePicture(ctx, "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid user id")
}

func TestResponsesWithoutJSONContentType(t *testing.T) {
	for _, contentType := range []string{"", "text/javascript; charset=UTF-8"} {
		t.Run(fmt.Sprintf("content type %q", contentType), func(t *testing.T) {
			g := newGraphStubServing(t, contentType)
			c := NewClient(g.config("token", "page-1"))
			ctx := context.Background()

			media, err := c.Media(ctx, "", "")
			require.NoError(t, err)
			assert.Equal(t, []string{"1", "2", "3", "4"}, ids(media))

			p, err := c.Profile(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tekkin.music", p.Username)

			pic, err := c.ProfilePicture(ctx, "cloonee")
			require.NoError(t, err)
			assert.Equal(t, "https://cdn.example/cloonee.jpg", pic)
		})
	}
}

func TestEmptyDiscoveryIsNotAProfile(t *testing.T) {
	g := newGraphStub(t)
	c := NewClient(g.config("token", "page-1"))

	_, err := c.Lookup(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, ok := c.profiles.Get("ghost")
	assert.False(t, ok)
}

func TestFailedLookupsAreRemembered(t *testing.T) {
	g := newGraphStub(t)
	c := NewClient(g.config("token", "page-1"))
	ctx := context.Background()

	for _, username := range []string{"nobody", "ghost"} {
		before := g.profile.Load()

		_, err := c.ProfilePicture(ctx, username)
		require.Error(t, err, username)
		_, err = c.ProfilePicture(ctx, "@"+username)
		require.Error(t, err, username)

		assert.Equal(t, before+1, g.profile.Load(), username)
	}
}

func TestCanceledLookupIsNotRemembered(t *testing.T) {
	g := newGraphStub(t)
	c := NewClient(g.config("token", "page-1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ProfilePicture(ctx, "cloonee")
	require.Error(t, err)

	pic, err := c.ProfilePicture(context.Background(), "cloonee")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/cloonee.jpg", pic)
}

func TestMissingCredentialsAreNotRemembered(t *testing.T) {
	g := newGraphStub(t)
	c := NewClient(g.config("token", ""))

	_, err := c.ProfilePicture(context.Background(), "cloonee")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, ok := c.misses.Get("cloonee")
	assert.False(t, ok)
}
