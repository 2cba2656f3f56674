package forecast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"fintrack/internal/core"
)

const maxResponseBytes = 1 << 20

// HTTPClient calls GET {base}/api/budget-forecast/{owner}?periods={n}.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Source = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *HTTPClient) Fetch(ctx context.Context, ownerID string, horizon int) ([]Point, error) {
	endpoint := c.baseURL + "/api/budget-forecast/" + url.PathEscape(ownerID) +
		"?periods=" + strconv.Itoa(horizon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: forecast request: %w", core.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read forecast response: %w", core.ErrUpstream, err)
	}

	points, err := ParseResponse(body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: forecast service returned %s", core.ErrUpstream, resp.Status)
	}
	return points, nil
}

// ParseResponse accepts either a JSON array of {ds, yhat, yhat_lower,
// yhat_upper} or an object carrying an "error" message.
func ParseResponse(body []byte) ([]Point, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: forecast response is not valid JSON", core.ErrUpstream)
	}

	doc := gjson.ParseBytes(body)
	switch {
	case doc.IsObject():
		if msg := doc.Get("error"); msg.Exists() {
			return nil, fmt.Errorf("%w: forecast service: %s", core.ErrUpstream, msg.String())
		}
		return nil, fmt.Errorf("%w: unexpected forecast object", core.ErrUpstream)
	case !doc.IsArray():
		return nil, fmt.Errorf("%w: unexpected forecast payload", core.ErrUpstream)
	}

	var (
		points []Point
		perr   error
	)
	doc.ForEach(func(_, item gjson.Result) bool {
		p, err := parsePoint(item)
		if err != nil {
			perr = fmt.Errorf("%w: forecast point %d: %w", core.ErrUpstream, len(points), err)
			return false
		}
		points = append(points, p)
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return points, nil
}

func parsePoint(item gjson.Result) (Point, error) {
	ds := item.Get("ds")
	if !ds.Exists() {
		return Point{}, fmt.Errorf("missing ds")
	}
	date, err := parseDS(ds.String())
	if err != nil {
		return Point{}, err
	}

	yhat := item.Get("yhat")
	if yhat.Type != gjson.Number {
		return Point{}, fmt.Errorf("yhat is not a number")
	}

	p := Point{Date: date, Predicted: yhat.Float(), Lower: yhat.Float(), Upper: yhat.Float()}
	if lo := item.Get("yhat_lower"); lo.Type == gjson.Number {
		p.Lower = lo.Float()
	}
	if hi := item.Get("yhat_upper"); hi.Type == gjson.Number {
		p.Upper = hi.Float()
	}
	return p, nil
}

var dsLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
}

func parseDS(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
