// Package backend talks to the REST API the lookup data comes from and submissions go to.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/observo/core"
	"github.com/trezcool/observo/core/flow"
	"github.com/trezcool/observo/core/lookup"
)

var (
	// create endpoints, by flow kind
	endpoints = map[string]string{
		"session": "sessions",
		"user":    "users",
	}

	ErrNoEndpoint = errors.New("no create endpoint for this kind of flow")
)

type (
	// envelope wraps every backend response.
	envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}

	// Error is a failed backend call. Message comes from the backend and is meant for the user.
	Error struct {
		StatusCode int
		Message    string
	}

	Client struct {
		rest    *rest.Client
		baseURL string
		schemas Schemas
		logger  core.Logger
	}
)

var (
	_ lookup.Source = (*Client)(nil)
	_ flow.Sink     = (*Client)(nil)
)

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend responded %d", e.StatusCode)
	}
	return fmt.Sprintf("backend responded %d: %s", e.StatusCode, e.Message)
}

func (e *Error) UserMessage() string { return e.Message }

func NewClient(conf core.BackendConfig, schemas Schemas, logger core.Logger) *Client {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: timeout}},
		baseURL: strings.TrimRight(conf.BaseURL, "/"),
		schemas: schemas,
		logger:  logger,
	}
}

func (c *Client) headers(ctx context.Context) map[string]string {
	headers := map[string]string{"Accept": "application/json"}
	if token := core.TokenFrom(ctx); token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

// do sends `req` and unwraps the response envelope; non-2xx responses and unsuccessful envelopes are *Error.
func (c *Client) do(ctx context.Context, req rest.Request) (json.RawMessage, error) {
	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.BaseURL)
	}

	var env envelope
	decErr := json.Unmarshal([]byte(resp.Body), &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if decErr != nil {
		return nil, errors.Wrapf(decErr, "decoding %s %s response", req.Method, req.BaseURL)
	}
	if !env.Success {
		return nil, &Error{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}

// Fetch fetches a page of `kind` records: GET {base}/{kind}.
func (c *Client) Fetch(ctx context.Context, kind lookup.Kind, q lookup.Query) (lookup.Page, error) {
	params := map[string]string{
		"curr_page": strconv.Itoa(q.Page),
		"per_page":  strconv.Itoa(q.PerPage),
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	if q.SortBy != "" {
		params["sort_by"] = q.SortBy
		params["sort_order"] = q.SortOrder
	}
	if q.Archived != nil {
		params["archived"] = strconv.FormatBool(*q.Archived)
	}
	if key := lookup.ParentKey(kind); key != "" && q.Parent != "" {
		params[key] = q.Parent
	}

	data, err := c.do(ctx, rest.Request{
		Method:      rest.Get,
		BaseURL:     c.baseURL + "/" + string(kind),
		Headers:     c.headers(ctx),
		QueryParams: params,
	})
	if err != nil {
		return lookup.Page{}, err
	}

	var fields map[string]json.RawMessage
	if err = json.Unmarshal(data, &fields); err != nil {
		return lookup.Page{}, errors.Wrapf(err, "decoding %s page", kind)
	}
	page := lookup.Page{Records: []lookup.Record{}}
	if raw, ok := fields[string(kind)]; ok {
		if err = json.Unmarshal(raw, &page.Records); err != nil {
			return lookup.Page{}, errors.Wrapf(err, "decoding %s records", kind)
		}
	}
	page.Total = intField(fields, "total")
	page.Page = intField(fields, "page")
	page.Pages = intField(fields, "pages")
	return page, nil
}

func intField(fields map[string]json.RawMessage, key string) int {
	var n json.Number
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &n) == nil {
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
	}
	return 0
}

// Send posts a submission to the create endpoint of its kind: POST {base}/{sessions|users}.
func (c *Client) Send(ctx context.Context, sub flow.Submission) (flow.Receipt, error) {
	endpoint, ok := endpoints[sub.Kind]
	if !ok {
		return flow.Receipt{}, errors.Wrap(ErrNoEndpoint, sub.Kind)
	}

	body, err := json.Marshal(sub.Payload)
	if err != nil {
		return flow.Receipt{}, errors.Wrap(err, "encoding payload")
	}
	if err = c.schemas.Check(sub.Kind, body); err != nil {
		return flow.Receipt{}, errors.Wrapf(err, "%s payload does not match its schema", sub.Kind)
	}

	headers := c.headers(ctx)
	headers["Content-Type"] = "application/json"
	data, err := c.do(ctx, rest.Request{
		Method:  rest.Post,
		BaseURL: c.baseURL + "/" + endpoint,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return flow.Receipt{}, err
	}

	receipt := flow.Receipt{Data: data}
	var created lookup.Record
	if err = json.Unmarshal(data, &created); err == nil {
		if opt, ok := lookup.NormalizeRecord(created); ok {
			receipt.ID = opt.Value
		}
	} else {
		c.logger.Warn("created record is not an object", err, map[string]interface{}{"flow": sub.FlowID, "kind": sub.Kind})
	}
	return receipt, nil
}
