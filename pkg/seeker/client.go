package seeker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sagecouncil/council/pkg/council"
	"github.com/sagecouncil/council/pkg/store"
)

// ErrNoSession is returned by Ask before Open has established a session.
var ErrNoSession = errors.New("seeker: no session, call Open first")

// RequestError is a server-side rejection of a whole submission: bad input,
// unknown session, or an empty credit balance. The optimistic state has
// already been rolled back when one is returned.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string {
	return "seeker: " + e.Message
}

// Client talks to a council gateway. The websocket is the primary path;
// when it cannot be established or stalls before any sage has spoken, the
// client falls back to the synchronous HTTP endpoint.
type Client struct {
	BaseURL   string
	SessionID string
	Reducer   *Reducer

	// Cache, when set, receives finished consultations and balance updates
	// so history survives a client restart.
	Cache *Cache

	HTTP   *http.Client
	Dialer *websocket.Dialer

	// ProgressTimeout bounds the wait for the next frame of an in-flight
	// consultation, not the consultation as a whole.
	ProgressTimeout time.Duration

	Logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient builds a client for the gateway at baseURL (http or https).
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		HTTP:            &http.Client{Timeout: 2 * time.Minute},
		Dialer:          &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		ProgressTimeout: 30 * time.Second,
		Logger:          slog.Default(),
	}
}

// Open establishes (or revisits) the session and seeds the reducer with the
// server's credit balance.
func (c *Client) Open(ctx context.Context) (credits int, err error) {
	var out struct {
		SessionID string `json:"sessionId"`
		Credits   int    `json:"credits"`
	}
	body := map[string]string{"sessionId": c.SessionID}
	if err := c.postJSON(ctx, "/api/session", body, &out); err != nil {
		return 0, err
	}
	c.SessionID = out.SessionID
	if c.Reducer == nil {
		c.Reducer = NewReducer(nil, out.Credits)
	} else {
		c.Reducer.SetCredits(out.Credits)
	}
	c.cacheCredits(ctx)
	return out.Credits, nil
}

func (c *Client) cacheCredits(ctx context.Context) {
	if c.Cache == nil {
		return
	}
	if err := c.Cache.SaveCredits(ctx, c.SessionID, c.Reducer.Credits()); err != nil {
		c.Logger.Warn("cache credits", "error", err)
	}
}

func (c *Client) cacheConsultation(ctx context.Context, cons *Consultation) {
	if c.Cache == nil || cons == nil {
		return
	}
	if err := c.Cache.SaveConsultation(ctx, c.SessionID, cons); err != nil {
		c.Logger.Warn("cache consultation", "id", cons.ID, "error", err)
	}
	c.cacheCredits(ctx)
}

// Ask submits one question to the selected sages and blocks until the
// consultation settles. Answers stream into the reducer as they arrive, so
// a caller polling Reducer.Current sees them grow chunk by chunk.
func (c *Client) Ask(ctx context.Context, question string, sageIDs []string) (*Consultation, error) {
	if c.SessionID == "" || c.Reducer == nil {
		return nil, ErrNoSession
	}
	id := council.NewRequestID()
	c.Reducer.Begin(id, question, sageIDs)

	cons, err := c.askStream(ctx, id, question, sageIDs)
	if err == nil {
		c.cacheConsultation(ctx, cons)
		return cons, nil
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return nil, err
	}

	// Transport trouble. If sages already spoke, keep what we have rather
	// than paying for a second submission.
	if cur := c.Reducer.Current(); cur != nil {
		for _, a := range cur.Answers {
			if a.Text != "" {
				c.Logger.Warn("connection lost mid-council, keeping partial answers", "error", err)
				c.Reducer.Disconnect()
				cons := c.last()
				c.cacheConsultation(ctx, cons)
				return cons, nil
			}
		}
	}

	c.Logger.Warn("streaming unavailable, falling back to http", "error", err)
	return c.askHTTP(ctx, id, question, sageIDs)
}

func (c *Client) askStream(ctx context.Context, id int64, question string, sageIDs []string) (*Consultation, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	start := council.Frame{
		Type:          council.TypeStartChat,
		Content:       question,
		SelectedSages: sageIDs,
		SessionID:     c.SessionID,
		MessageID:     id,
	}
	if err := conn.WriteJSON(start); err != nil {
		c.closeConn()
		return nil, fmt.Errorf("seeker: send: %w", err)
	}
	for {
		conn.SetReadDeadline(time.Now().Add(c.ProgressTimeout))
		var f council.Frame
		if err := conn.ReadJSON(&f); err != nil {
			c.closeConn()
			return nil, fmt.Errorf("seeker: read: %w", err)
		}
		done := c.Reducer.Apply(f)
		if f.Type == council.TypeError && f.SageID == "" && f.MessageID == id {
			return nil, &RequestError{Message: f.Message}
		}
		if done {
			return c.last(), nil
		}
	}
}

func (c *Client) askHTTP(ctx context.Context, id int64, question string, sageIDs []string) (*Consultation, error) {
	body := map[string]any{
		"content":       question,
		"selectedSages": sageIDs,
		"sessionId":     c.SessionID,
		"messageId":     id,
	}
	var out struct {
		Responses map[string]string `json:"responses"`
		Error     string            `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/chat", body, &out); err != nil {
		c.Reducer.Rollback(id)
		if out.Error != "" {
			return nil, &RequestError{Message: out.Error}
		}
		return nil, err
	}
	c.Reducer.Complete(id, out.Responses)
	cons := c.last()
	c.cacheConsultation(ctx, cons)
	return cons, nil
}

func (c *Client) last() *Consultation {
	hist := c.Reducer.History()
	if len(hist) == 0 {
		return nil
	}
	return hist[len(hist)-1]
}

// Purchase buys credits and syncs the confirmed balance.
func (c *Client) Purchase(ctx context.Context, amount int) (credits int, err error) {
	var out struct {
		Credits int `json:"credits"`
	}
	body := map[string]any{"sessionId": c.SessionID, "amount": amount}
	if err := c.postJSON(ctx, "/api/credits/purchase", body, &out); err != nil {
		return 0, err
	}
	if c.Reducer != nil {
		c.Reducer.SetCredits(out.Credits)
	}
	return out.Credits, nil
}

// History fetches the session's server-side record.
func (c *Client) History(ctx context.Context) ([]*store.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/messages/"+c.SessionID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seeker: history: status %d", resp.StatusCode)
	}
	var msgs []*store.Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Close drops the websocket, if any.
func (c *Client) Close() error {
	c.closeConn()
	return nil
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	url := "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/ws"
	conn, _, err := c.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("seeker: dial %s: %w", url, err)
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// postJSON posts a JSON body and decodes the JSON response into out. Non-2xx
// statuses are returned as errors; when the response body carried a server
// error message it is decoded into out first so callers can surface it.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("seeker: decode %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("seeker: %s: status %d", path, resp.StatusCode)
	}
	return nil
}
