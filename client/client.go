// Package client is a Go SDK for the mail relay HTTP API.
package client

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.mail.zhiyan114.com"
	requestTimeout = time.Second * 30
)

var (
	namedAddress = regexp.MustCompile("^[a-zA-Z0-9 ._'`-]+ <[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\\.[a-zA-Z]{2,}>$")
	bareAddress  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	ErrValidation = errors.New("client: invalid mail")
)

// Mail is a submission. To and ReplyTo entries may themselves be comma
// separated lists. ReqId is optional.
type Mail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo []string `json:"replyto,omitempty"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	Html    string   `json:"html,omitempty"`
	ReqId   string   `json:"reqID,omitempty"`
}

type SendResult struct {
	Success bool   `json:"success"`
	ReqId   string `json:"reqID"`
	Message string `json:"message"`
}

type MailStatus struct {
	Id        uint       `json:"id"`
	Fulfilled *time.Time `json:"fulfilled"`
	LastError *string    `json:"lasterror"`
}

type StatusResult struct {
	Emails []MailStatus `json:"emails"`
}

// APIError is returned for every non 200 response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: unexpected status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	rc *resty.Client
}

// New builds a client for apiKey. An empty baseURL uses DefaultBaseURL.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(requestTimeout)

	return &Client{rc: rc}
}

func (c *Client) SendMail(ctx context.Context, m Mail) (*SendResult, error) {
	m.To = splitAll(m.To)
	m.ReplyTo = splitAll(m.ReplyTo)

	if err := m.validate(); err != nil {
		return nil, err
	}

	var out SendResult
	resp, err := c.rc.R().
		SetContext(ctx).
		SetBody(m).
		SetResult(&out).
		Post("/requests")
	if err != nil {
		return nil, errors.Wrap(err, "client: unable to submit mail")
	}

	if resp.StatusCode() != 200 {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return &out, nil
}

func (c *Client) GetMailStatus(ctx context.Context, reqId string) (*StatusResult, error) {
	var out StatusResult
	resp, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("reqID", reqId).
		SetResult(&out).
		Get("/requests/{reqID}")
	if err != nil {
		return nil, errors.Wrap(err, "client: unable to fetch mail status")
	}

	if resp.StatusCode() != 200 {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	return &out, nil
}

func (m Mail) validate() error {
	switch {
	case m.Text == "" && m.Html == "":
		return errors.Wrap(ErrValidation, "missing both text and html")
	case m.Text != "" && m.Html != "":
		return errors.Wrap(ErrValidation, "only one of text or html is allowed")
	case !validAddress(m.From):
		return errors.Wrap(ErrValidation, "'from' field failed validation")
	case len(m.To) == 0:
		return errors.Wrap(ErrValidation, "at least one recipient is required")
	}

	for _, a := range m.To {
		if !validAddress(a) {
			return errors.Wrapf(ErrValidation, "'to' address %q failed validation", a)
		}
	}

	for _, a := range m.ReplyTo {
		if !validAddress(a) {
			return errors.Wrapf(ErrValidation, "'replyto' address %q failed validation", a)
		}
	}

	return nil
}

func validAddress(a string) bool {
	return bareAddress.MatchString(a) || namedAddress.MatchString(a)
}

func splitAll(list []string) []string {
	var out []string
	for _, l := range list {
		for _, a := range strings.Split(l, ",") {
			if a = strings.TrimSpace(a); a != "" {
				out = append(out, a)
			}
		}
	}

	return out
}
