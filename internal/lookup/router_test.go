package lookup_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pricecompare/internal/lookup"
	"pricecompare/internal/provider"
	"pricecompare/internal/provider/collectapi"
	"pricecompare/internal/provider/priceapi"
)

const target = "https://www.amazon.in/dp/B0EXAMPLE"

func newRouter(client lookup.HTTPClient) *lookup.Router {
	return lookup.NewRouter(provider.NewRegistry(collectapi.New(), priceapi.New()), client)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestLookup_MissingCredential_NoNetworkCall(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client that must not be called.
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	// Act
	_, err := newRouter(httpClient).Lookup(t.Context(), "collectapi", "  ", target)

	// Assert
	require.ErrorIs(t, err, provider.ErrMissingCredential)
	var ce *provider.ConfigError
	require.True(t, errors.As(err, &ce))
}

func TestLookup_UnknownProvider(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	_, err := newRouter(httpClient).Lookup(t.Context(), "rainforest", "key", target)
	require.ErrorIs(t, err, provider.ErrUnknownProvider)
	require.Contains(t, err.Error(), "rainforest")
}

func TestLookup_CollectAPI_CaseInsensitive(t *testing.T) {
	t.Parallel()

	// Arrange: the upstream answers with a nested result.
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "api.collectapi.com", req.URL.Host)
			require.Equal(t, "apikey k", req.Header.Get("Authorization"))
			require.Equal(t, target, req.URL.Query().Get("url"))
			return jsonResponse(http.StatusOK, `{"success":true,"result":{"title":"X","mrp":100}}`), nil
		}).
		Times(1)

	// Act
	res, err := newRouter(httpClient).Lookup(t.Context(), "CollectAPI", "apikey k", target)

	// Assert
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "X", *res.Quote.Title)
	require.Equal(t, json.Number("100"), res.Quote.Price)
	require.Nil(t, res.Quote.Image)
	require.Equal(t, target, res.Quote.URL)
}

func TestLookup_PriceAPI_TokenQuery(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "tok", req.URL.Query().Get("token"))
			require.Empty(t, req.Header.Get("Authorization"))
			return jsonResponse(http.StatusOK, `[{"result":{"title":"Y","price":50}}]`), nil
		}).
		Times(1)

	res, err := newRouter(httpClient).Lookup(t.Context(), "priceapi", "tok", target)
	require.NoError(t, err)
	require.Equal(t, "Y", *res.Quote.Title)
	require.Equal(t, json.Number("50"), res.Quote.Price)
}

func TestLookup_StatusForwarding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		upstream int
		want     int
	}{
		{http.StatusOK, http.StatusOK},
		{http.StatusCreated, http.StatusOK},
		{http.StatusNotFound, http.StatusNotFound},
		{http.StatusTooManyRequests, http.StatusTooManyRequests},
		{http.StatusBadGateway, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.upstream), func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				Return(jsonResponse(tt.upstream, `{"data":{"name":"N","price":"₹10"}}`), nil).
				Times(1)

			// Act: a non-2xx status is not an error.
			res, err := newRouter(httpClient).Lookup(t.Context(), "collectapi", "k", target)

			// Assert: status forwarded, fields still extracted.
			require.NoError(t, err)
			require.Equal(t, tt.want, res.Status)
			require.Equal(t, "N", *res.Quote.Title)
			require.Equal(t, "₹10", res.Quote.Price)
		})
	}
}

func TestLookup_NotFoundWithoutFields(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusNotFound, `{"success":false,"message":"product not found"}`), nil).
		Times(1)

	res, err := newRouter(httpClient).Lookup(t.Context(), "collectapi", "k", target)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, res.Status)
	require.Nil(t, res.Quote.Title)
	require.Nil(t, res.Quote.Price)
	require.Nil(t, res.Quote.Image)
	require.JSONEq(t, `{"success":false,"message":"product not found"}`, string(res.Quote.Raw))
}

func TestLookup_MalformedBodyRecovered(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(jsonResponse(http.StatusOK, "<html>oops</html>"), nil).
		Times(1)

	res, err := newRouter(httpClient).Lookup(t.Context(), "collectapi", "k", target)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Nil(t, res.Quote.Title)
	require.JSONEq(t, `{}`, string(res.Quote.Raw))
}

func TestLookup_Timeout(t *testing.T) {
	t.Parallel()

	// Arrange: the upstream answers only after the test releases it.
	release := make(chan struct{})
	called := make(chan struct{})
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			close(called)
			<-release
			return jsonResponse(http.StatusOK, `{}`), nil
		}).
		Times(1)

	// Act
	start := time.Now()
	_, err := newRouter(httpClient).Lookup(t.Context(), "collectapi", "k", target, lookup.WithTimeout(30*time.Millisecond))
	<-called
	close(release)

	// Assert: single attempt, hard failure.
	require.ErrorIs(t, err, provider.ErrUpstreamTimeout)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestLookup_TransportError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(nil, errors.New("dial tcp: lookup api.collectapi.com: no such host")).
		Times(1)

	_, err := newRouter(httpClient).Lookup(t.Context(), "collectapi", "k", target)
	var ue *provider.UpstreamError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, "collectapi", ue.Provider)
	require.Contains(t, err.Error(), "no such host")
}

func TestLookup_BodyReadErrorKeepsPartialBody(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(io.MultiReader(strings.NewReader(`{"result":{"ti`), iotest.ErrReader(errors.New("connection reset")))),
		}, nil).
		Times(1)

	_, err := newRouter(httpClient).Lookup(t.Context(), "collectapi", "k", target)
	var ue *provider.UpstreamError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, `{"result":{"ti`, string(ue.Body))
	require.Contains(t, err.Error(), "connection reset")
}
