package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/and3rn3t/network-sub004/internal/model"
)

// NtfyProvider sends notifications to a ntfy.sh topic.
type NtfyProvider struct {
	url    string
	topic  string
	client *http.Client
}

// NewNtfy creates a ntfy provider. url is the server base
// (e.g. https://ntfy.sh), topic the channel to publish to.
func NewNtfy(url, topic string) *NtfyProvider {
	return &NtfyProvider{
		url:    strings.TrimRight(url, "/"),
		topic:  topic,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NtfyProvider) Name() string { return "ntfy" }

func (n *NtfyProvider) Send(ctx context.Context, notif model.Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.url+"/"+n.topic, strings.NewReader(notif.Message))
	if err != nil {
		return fmt.Errorf("ntfy: build request: %w", err)
	}

	req.Header.Set("Title", notif.Title)
	req.Header.Set("Priority", severityToNtfyPriority(notif.Severity))
	req.Header.Set("Tags", ntfyTags(notif))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func severityToNtfyPriority(severity string) string {
	switch severity {
	case "critical":
		return "5"
	case "info":
		return "2"
	default:
		return "3"
	}
}

func ntfyTags(notif model.Notification) string {
	switch notif.EventType {
	case model.EventDeviceOffline, model.EventClientDisconnected:
		return "red_circle"
	case model.EventDeviceOnline, model.EventClientConnected:
		return "green_circle"
	case model.EventFirmwareChanged:
		return "arrow_up"
	default:
		return "information_source"
	}
}
