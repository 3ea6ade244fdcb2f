package luftmetrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrFailedRequest covers everything that kept a request from yielding a
// usable response: transport errors and non-2xx statuses alike. Callers
// treat it as transient and schedule a retry instead of reporting a bug.
var ErrFailedRequest = errors.New("failed request")

type HttpClient struct {
	client *http.Client
}

func NewHttpClient(timeout time.Duration) *HttpClient {
	return &HttpClient{
		client: &http.Client{Timeout: timeout},
	}
}

func URLOpt(u *url.URL) func(req *http.Request) {
	return func(req *http.Request) {
		req.URL = u
	}
}

// Get fetches the URL set by opts and returns the raw body. Decoding stays
// with the caller; the upstream payload shapes need more than a plain
// json.Unmarshal into a struct.
func (c *HttpClient) Get(ctx context.Context, log *zerolog.Logger, opts func(*http.Request)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}

	opts(req)

	rep, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("request error")
		return nil, fmt.Errorf("%w: %v", ErrFailedRequest, err)
	}
	defer rep.Body.Close()

	if rep.StatusCode < 200 || rep.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(rep.Body)
		log.Error().Int("code", rep.StatusCode).Bytes("rep", bodyBytes).Msg("request error")
		return nil, ErrFailedRequest
	}

	body, err := io.ReadAll(rep.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailedRequest, err)
	}

	log.Debug().Str("body", string(body)).Msg("get body")
	return body, nil
}
