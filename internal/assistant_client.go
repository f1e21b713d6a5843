package internal

import (
	"context"
	"errors"
	"net/http"
)

// AssistantRequest is the chat payload sent to the assistant endpoint
type AssistantRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
	ChatID  string `json:"chat_id"`
}

// AssistantReply is the decoded answer; Reply is empty when the server sent none
type AssistantReply struct {
	Reply string
	URL   string
}

// AssistantSender delivers one chat message to the assistant
type AssistantSender interface {
	Send(ctx context.Context, req AssistantRequest) (*AssistantReply, error)
}

// AssistantClient tries an ordered list of candidate URLs. A 404 means the
// route is not deployed there and moves on silently; any other failure is
// remembered and the next URL is tried.
type AssistantClient struct {
	api  *APIClient
	urls []string
}

var _ AssistantSender = (*AssistantClient)(nil)

// NewAssistantClient creates a client trying urls in order
func NewAssistantClient(api *APIClient, urls []string) *AssistantClient {
	return &AssistantClient{api: api, urls: urls}
}

// URLs returns the candidate endpoints in the order they are tried
func (a *AssistantClient) URLs() []string {
	return a.urls
}

// Send posts req to each candidate until one answers 2xx. A 2xx body that is
// not a JSON object still ends the chain, with an empty Reply. When all fail
// the most recent non-404 error is returned, or ErrNoAssistantEndpoint when
// every candidate answered 404.
func (a *AssistantClient) Send(ctx context.Context, req AssistantRequest) (*AssistantReply, error) {
	var lastErr error

	for _, url := range a.urls {
		var obj map[string]any
		err := a.api.doJSON(ctx, http.MethodPost, url, "", req, &obj)
		if errors.Is(err, errMalformedBody) {
			LogDebug("Assistant at %s answered without a JSON object: %v", url, err)
			return &AssistantReply{URL: url}, nil
		}
		if err == nil {
			return &AssistantReply{Reply: firstString(obj["reply"]), URL: url}, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			LogDebug("Assistant route not deployed at %s, trying next", url)
			continue
		}

		LogDebug("Assistant call to %s failed: %v", url, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = ErrNoAssistantEndpoint
	}
	return nil, lastErr
}
