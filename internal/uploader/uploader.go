package uploader

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/wxforward/wulike/internal/config"
	"github.com/wxforward/wulike/internal/record"
	"github.com/wxforward/wulike/internal/wunderground"
)

// ErrDisabled is returned when an upload is attempted while the uploader is
// switched off or misconfigured.
var ErrDisabled = errors.New("uploader is disabled")

// Uploader posts one archive record per call to the configured server in
// Weather Underground update format.
type Uploader struct {
	cfg     config.UploadConfig
	req     wunderground.Request
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// New builds an Uploader from config. MaxTries is the total attempt count,
// so the retry budget is MaxTries-1.
func New(cfg config.UploadConfig, client *http.Client) *Uploader {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wulike-upload",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Uploader{
		cfg: cfg,
		req: wunderground.Request{
			ServerURL:    cfg.ServerURL,
			Station:      cfg.Station,
			Password:     cfg.Password,
			SoftwareType: cfg.SoftwareType,
		},
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      cfg.MaxTries - 1,
				InitialInterval: cfg.RetryWait,
				MaxInterval:     8 * cfg.RetryWait,
			},
		},
		circuit: cb,
	}
}

// Enabled reports whether upload requests will be issued at all.
func (u *Uploader) Enabled() bool {
	return u.cfg.Enable
}

// Upload issues the GET for one archive record, retrying per policy.
// A bad-login response returns wunderground.ErrBadLogin without retrying.
func (u *Uploader) Upload(ctx context.Context, rec *record.ArchiveRecord) error {
	if !u.cfg.Enable {
		return ErrDisabled
	}

	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, u.req.BuildURL(rec), nil)
	}

	checkResponse := func(resp *http.Response) error {
		// WU-style servers report login failures inside a 200 body.
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return nil
		}
		return wunderground.CheckResponseBody(string(body))
	}

	return doRequestWithResilience(ctx, u.httpCfg, u.circuit, buildRequest, checkResponse)
}
