package roblox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/agentstation/rbxproducts/internal/transport"
	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/constants"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/logging"
	"github.com/agentstation/rbxproducts/pkg/remote"
)

var _ remote.Source = (*Client)(nil)

// Client talks to the catalog of one universe.
type Client struct {
	http       *transport.Client
	baseURL    string
	universeID uint64
	pageSize   int
}

// New creates a Client for universeID. It fails with an AuthenticationError
// when no API key is configured, before any request is made.
func New(cfg Config, universeID uint64, opts ...transport.Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, errors.NewAuthenticationError(constants.RemoteName, "api_key",
			constants.APIKeyEnv+" is not set", errors.ErrAPIKeyRequired)
	}
	if universeID == 0 {
		return nil, &errors.ValidationError{Field: "universe-id", Value: universeID, Message: "must be positive"}
	}

	base := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithMaxRateLimitRetries(cfg.MaxRateLimitRetries),
	}
	return &Client{
		http:       transport.New(&transport.HeaderAuth{Header: constants.APIKeyHeader}, cfg.APIKey, append(base, opts...)...),
		baseURL:    cfg.BaseURL,
		universeID: universeID,
		pageSize:   cfg.PageSize,
	}, nil
}

func (c *Client) collection(cat catalog.Category) string {
	switch cat {
	case catalog.GamePass:
		return fmt.Sprintf("%s/game-passes/v1/universes/%d/game-passes", c.baseURL, c.universeID)
	default:
		return fmt.Sprintf("%s/developer-products/v2/universes/%d/developer-products", c.baseURL, c.universeID)
	}
}

// List implements remote.Source. Game passes come first, each category in
// the order the API returns them.
func (c *Client) List(ctx context.Context) ([]catalog.Record, error) {
	passes, err := c.listGamePasses(ctx)
	if err != nil {
		return nil, err
	}
	products, err := c.listProducts(ctx)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug().
		Int("gamepasses", len(passes)).
		Int("products", len(products)).
		Msg("Listed remote catalog")
	return append(passes, products...), nil
}

func (c *Client) listGamePasses(ctx context.Context) ([]catalog.Record, error) {
	var out []catalog.Record
	err := c.paginate(ctx, c.collection(catalog.GamePass)+"/creator", func(resp *http.Response) (string, error) {
		var page gamePassPage
		if err := transport.DecodeResponse(resp, constants.RemoteName, &page); err != nil {
			return "", err
		}
		for _, g := range page.GamePasses {
			out = append(out, g.record())
		}
		return page.NextPageToken, nil
	})
	return out, err
}

func (c *Client) listProducts(ctx context.Context) ([]catalog.Record, error) {
	var out []catalog.Record
	err := c.paginate(ctx, c.collection(catalog.Product)+"/creator", func(resp *http.Response) (string, error) {
		var page developerProductPage
		if err := transport.DecodeResponse(resp, constants.RemoteName, &page); err != nil {
			return "", err
		}
		for _, p := range page.DeveloperProducts {
			out = append(out, p.record())
		}
		return page.NextPageToken, nil
	})
	return out, err
}

// paginate follows nextPageToken until it is empty. A token seen twice is
// treated as the end of the listing.
func (c *Client) paginate(ctx context.Context, endpoint string, handle func(*http.Response) (string, error)) error {
	seen := make(map[string]bool)
	token := ""
	for {
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(c.pageSize))
		if token != "" {
			q.Set("pageToken", token)
		}
		resp, err := c.http.Get(ctx, endpoint+"?"+q.Encode())
		if err != nil {
			return c.networkError(ctx, "list", err)
		}
		next, err := handle(resp)
		if err != nil {
			return err
		}
		if next == "" || seen[next] {
			return nil
		}
		seen[next] = true
		token = next
	}
}

// Create implements remote.Source.
func (c *Client) Create(ctx context.Context, draft catalog.Draft) (catalog.Record, error) {
	body, contentType, err := draftForm(draft).close()
	if err != nil {
		return catalog.Record{}, errors.WrapIO("encode", "form", err)
	}
	resp, err := c.http.Send(ctx, http.MethodPost, c.collection(draft.Category), contentType, body)
	if err != nil {
		return catalog.Record{}, c.networkError(ctx, "create", err)
	}

	var id uint64
	switch draft.Category {
	case catalog.GamePass:
		var g gamePass
		if err := transport.DecodeResponse(resp, constants.RemoteName, &g); err != nil {
			return catalog.Record{}, err
		}
		id = g.GamePassID
	default:
		var p developerProduct
		if err := transport.DecodeResponse(resp, constants.RemoteName, &p); err != nil {
			return catalog.Record{}, err
		}
		id = p.ProductID
	}
	if id == 0 {
		return catalog.Record{}, errors.NewAPIError(constants.RemoteName, resp.StatusCode, "create response carried no id")
	}

	logging.FromContext(ctx).Debug().Uint64("record_id", id).Msg("Created remote record")
	return catalog.Record{
		ID:              id,
		Category:        draft.Category,
		Name:            draft.Name,
		Price:           draft.Price,
		Description:     draft.Description,
		ForSale:         draft.ForSale,
		RegionalPricing: draft.RegionalPricing,
	}, nil
}

// Update implements remote.Source. Only the fields set in patch are sent.
// The API cannot clear the price of an existing item, so a price below 1 is
// rejected before anything is sent.
func (c *Client) Update(ctx context.Context, current catalog.Record, patch catalog.Patch) (catalog.Record, error) {
	if patch.Empty() {
		return current, nil
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return catalog.Record{}, errors.NewValidationError("price", *patch.Price, "must be at least 1 to update an existing item")
	}
	body, contentType, err := patchForm(patch).close()
	if err != nil {
		return catalog.Record{}, errors.WrapIO("encode", "form", err)
	}
	endpoint := c.collection(current.Category) + "/" + strconv.FormatUint(current.ID, 10)
	resp, err := c.http.Send(ctx, http.MethodPatch, endpoint, contentType, body)
	if err != nil {
		return catalog.Record{}, c.networkError(ctx, "update", err)
	}
	if err := transport.DecodeResponse(resp, constants.RemoteName, nil); err != nil {
		return catalog.Record{}, err
	}
	return patch.Apply(current), nil
}

// networkError classifies a failure that produced no response. Cancellation
// passes through; everything else is a transient APIError.
func (c *Client) networkError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.WrapAPI(constants.RemoteName, 0, fmt.Errorf("%s request failed: %w", op, err))
}
