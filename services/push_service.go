package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/types"
)

const (
	// defaultExpoPushURL is the Expo Push API endpoint.
	defaultExpoPushURL = "https://exp.host/--/api/v2/push/send"

	pushTimeout = 30 * time.Second
)

// PushMessage is the payload handed to the push-dispatch collaborator.
type PushMessage struct {
	Title        string                 `json:"title"`
	Message      string                 `json:"message"`
	Type         types.NotificationType `json:"type"`
	ActionParams map[string]interface{} `json:"actionParams,omitempty"`
}

// PushDispatcher delivers a push message to one recipient. Delivery
// mechanics (token storage, platform routing, retries) are the
// collaborator's concern; callers fire, observe success or failure, and
// continue regardless.
type PushDispatcher interface {
	Send(ctx context.Context, userID string, msg *PushMessage) error
}

// expoMessage is the Expo push API message format.
type expoMessage struct {
	To       string                 `json:"to"`
	Title    string                 `json:"title,omitempty"`
	Body     string                 `json:"body,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Sound    string                 `json:"sound,omitempty"`
	Priority string                 `json:"priority,omitempty"`
}

type expoResponse struct {
	Data []expoTicket `json:"data"`
}

type expoTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// expoPushDispatcher implements PushDispatcher against the Expo push API.
type expoPushDispatcher struct {
	pushTokenStore store.PushTokenStore
	pushURL        string
	httpClient     *http.Client
	logger         *zap.SugaredLogger
}

// NewExpoPushDispatcher creates a push dispatcher backed by Expo. An empty
// pushURL selects the public Expo endpoint.
func NewExpoPushDispatcher(pts store.PushTokenStore, pushURL string, logger *zap.SugaredLogger) PushDispatcher {
	if pushURL == "" {
		pushURL = defaultExpoPushURL
	}
	return &expoPushDispatcher{
		pushTokenStore: pts,
		pushURL:        pushURL,
		httpClient:     &http.Client{Timeout: pushTimeout},
		logger:         logger.Named("push"),
	}
}

func (s *expoPushDispatcher) Send(ctx context.Context, userID string, msg *PushMessage) error {
	tokens, err := s.pushTokenStore.GetActiveTokensForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get tokens for user %s: %w", userID, err)
	}

	if len(tokens) == 0 {
		// Not an error, the user just doesn't have push enabled.
		s.logger.Debugw("No active push tokens for user", "userID", userID)
		return nil
	}

	messages := make([]expoMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, expoMessage{
			To:       token.Token,
			Title:    msg.Title,
			Body:     msg.Message,
			Data:     s.buildData(msg),
			Sound:    "default",
			Priority: "high",
		})
	}

	return s.sendBatch(ctx, messages)
}

func (s *expoPushDispatcher) buildData(msg *PushMessage) map[string]interface{} {
	data := map[string]interface{}{"type": string(msg.Type)}
	for k, v := range msg.ActionParams {
		data[k] = v
	}
	return data
}

func (s *expoPushDispatcher) sendBatch(ctx context.Context, messages []expoMessage) error {
	body, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pushURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Errorw("Push API returned non-OK status",
			"statusCode", resp.StatusCode,
			"response", string(respBody))
		return fmt.Errorf("push API returned status %d", resp.StatusCode)
	}

	var expoResp expoResponse
	if err := json.Unmarshal(respBody, &expoResp); err != nil {
		// The push likely went through; don't fail on an unparsable body.
		s.logger.Warnw("Failed to parse push response", "error", err)
		return nil
	}

	var errCount int
	for _, ticket := range expoResp.Data {
		if ticket.Status == "error" {
			errCount++
			s.logger.Warnw("Push ticket failed", "message", ticket.Message)
		}
	}
	if errCount == len(expoResp.Data) && errCount > 0 {
		return fmt.Errorf("all %d push tickets failed", errCount)
	}
	return nil
}

// noopPushDispatcher drops all messages. Used when push is disabled.
type noopPushDispatcher struct {
	logger *zap.SugaredLogger
}

// NewNoopPushDispatcher returns a dispatcher that logs and discards.
func NewNoopPushDispatcher(logger *zap.SugaredLogger) PushDispatcher {
	return &noopPushDispatcher{logger: logger.Named("push")}
}

func (s *noopPushDispatcher) Send(_ context.Context, userID string, msg *PushMessage) error {
	s.logger.Debugw("Push disabled, dropping message", "userID", userID, "title", msg.Title)
	return nil
}
