package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anchal00/morningstar/internal/logger"
	"github.com/anchal00/morningstar/internal/model"
	"github.com/anchal00/morningstar/internal/parser"
	"github.com/anchal00/morningstar/internal/reveal"
)

const (
	apiPrefix      = "/api/v1"
	defaultTimeout = 10 * time.Second
)

// Client talks to a MorningStar server over its REST API.
type Client struct {
	baseURL string
	http    *http.Client
	Logger  logger.Logger
}

func New(baseURL string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, model.ErrNotConfigured
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: server url %q must be http(s)://host[:port]", model.ErrValidation, baseURL)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		Logger:  logger.New("client"),
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorFor turns a non-2xx response into one of the model sentinels.
func errorFor(resp *http.Response) error {
	body := parser.ErrorResponse{}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	var sentinel error
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		sentinel = model.ErrValidation
	case resp.StatusCode == http.StatusNotFound:
		sentinel = model.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		sentinel = model.ErrConflict
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		sentinel = model.ErrTransientIO
	default:
		sentinel = errors.New("unexpected response")
	}
	return fmt.Errorf("%w: %s (HTTP %d)", sentinel, msg, resp.StatusCode)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", model.ErrTransientIO, method, path, err)
	}
	defer resp.Body.Close()
	c.Logger.Debug(fmt.Sprintf("%s %s returned status %d", method, path, resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFor(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", model.ErrTransientIO, path, err)
	}
	return nil
}

func escape(s string) string {
	return url.PathEscape(s)
}

// CreateRoom asks for a specific code, or lets the server choose one when code is empty.
func (c *Client) CreateRoom(ctx context.Context, code, hostID, hostName string) (*model.Room, error) {
	room := &model.Room{}
	err := c.do(ctx, http.MethodPost, "/rooms", parser.CreateRoomRequest{ID: code, HostID: hostID, HostName: hostName}, room)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (c *Client) JoinRoom(ctx context.Context, code, guestID, guestName string) (*model.Room, error) {
	room := &model.Room{}
	err := c.do(ctx, http.MethodPost, "/rooms/"+escape(code)+"/join", parser.JoinRoomRequest{GuestID: guestID, GuestName: guestName}, room)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (c *Client) GetRoom(ctx context.Context, code string) (*model.Room, error) {
	room := &model.Room{}
	if err := c.do(ctx, http.MethodGet, "/rooms/"+escape(code), nil, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (c *Client) SubmitAnswer(ctx context.Context, code, userID, questionID, text string) error {
	path := "/rooms/" + escape(code) + "/answers/" + escape(questionID)
	return c.do(ctx, http.MethodPut, path, parser.SubmitAnswerRequest{UserID: userID, Text: text}, nil)
}

func (c *Client) FetchAnswers(ctx context.Context, code string) ([]model.Answer, error) {
	answers := make([]model.Answer, 0)
	if err := c.do(ctx, http.MethodGet, "/rooms/"+escape(code)+"/answers", nil, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (c *Client) Reveal(ctx context.Context, code, userID string) (*reveal.View, error) {
	view := &reveal.View{}
	path := "/rooms/" + escape(code) + "/reveal?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, http.MethodGet, path, nil, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (c *Client) ListRoomsForUser(ctx context.Context, userID string) ([]model.Room, error) {
	rooms := make([]model.Room, 0)
	if err := c.do(ctx, http.MethodGet, "/users/"+escape(userID)+"/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) ListQuestions(ctx context.Context) ([]model.Question, error) {
	questions := make([]model.Question, 0)
	if err := c.do(ctx, http.MethodGet, "/questions", nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *Client) AddQuestion(ctx context.Context, text, submittedBy string) (*model.Question, error) {
	q := &model.Question{}
	if err := c.do(ctx, http.MethodPost, "/questions", parser.AddQuestionRequest{Text: text, SubmittedBy: submittedBy}, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (c *Client) ListAllRooms(ctx context.Context) ([]model.Room, error) {
	rooms := make([]model.Room, 0)
	if err := c.do(ctx, http.MethodGet, "/admin/rooms", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) DeleteRoom(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, "/admin/rooms/"+escape(code), nil, nil)
}

func (c *Client) PurgeRooms(ctx context.Context, olderThan time.Duration) (int64, error) {
	out := parser.PurgeResponse{}
	path := "/admin/purge?older_than=" + url.QueryEscape(olderThan.String())
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Purged, nil
}

func (c *Client) DeleteQuestion(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/questions/"+escape(id), nil, nil)
}

// QRCode fetches the PNG QR code of the room link.
func (c *Client) QRCode(ctx context.Context, code string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+"/rooms/"+escape(code)+"/qr", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransientIO, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errorFor(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrTransientIO, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFor(resp)
	}
	return nil
}
