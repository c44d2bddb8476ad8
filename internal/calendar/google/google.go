// Package google mirrors ledger events to a Google Calendar.
package google

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"bizledger/internal/config"
	"bizledger/internal/core"
	"bizledger/internal/log"
)

// eventIDPrefix namespaces calendar ids so reruns target the same entry.
const eventIDPrefix = "bl"

type Client struct {
	svc        *gcalendar.Service
	calendarID string
	logger     *log.Logger
}

// New builds a client for calendarID. Callers pass credentials through opts.
func New(ctx context.Context, calendarID string, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(calendarID) == "" {
		return nil, errors.New("missing calendar id")
	}
	if logger == nil {
		logger = log.Nop()
	}
	svc, err := gcalendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{
		svc:        svc,
		calendarID: calendarID,
		logger:     logger.WithComponent(log.ComponentCalendar),
	}, nil
}

// NewFromConfig authenticates with the configured service account, inline
// JSON taking precedence over the key file. Without one it falls back to the
// OAuth client and the token saved by calendar-auth.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Client, error) {
	if !cfg.HasServiceAccount() && cfg.HasOAuthClient() {
		ts, err := oauthTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return New(ctx, cfg.GoogleCalendarID, logger, goption.WithTokenSource(ts))
	}

	credentialsJSON, err := serviceAccountJSON(cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg.GoogleCalendarID, logger,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gcalendar.CalendarEventsScope))
}

func serviceAccountJSON(cfg *config.Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.GoogleServiceAccountJSON) != "":
		return []byte(cfg.GoogleServiceAccountJSON), nil
	case cfg.GoogleServiceAccountFile != "":
		data, err := os.ReadFile(cfg.GoogleServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials or OAuth client (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_OAUTH_CLIENT_JSON)")
	}
}

// InsertEvent creates an all-day entry for e and returns its calendar id.
// An entry that already exists counts as success, so redelivered sync
// requests are harmless.
func (c *Client) InsertEvent(ctx context.Context, e core.Event) (string, error) {
	if c.svc == nil {
		return "", errors.New("calendar service not initialized")
	}

	id := CalendarEventID(e.ID)
	entry := &gcalendar.Event{
		Id:          id,
		Summary:     e.Title,
		Description: e.Description,
		Start:       &gcalendar.EventDateTime{Date: e.Date.String()},
		End:         &gcalendar.EventDateTime{Date: e.Date.AddDays(1).String()},
	}

	_, err := c.svc.Events.Insert(c.calendarID, entry).Context(ctx).Do()
	var gerr *googleapi.Error
	switch {
	case err == nil:
		c.logger.InfoContext(ctx, "Calendar entry created",
			log.FieldRecordID, e.ID, log.FieldCalendarRef, id, log.FieldDate, e.Date.String())
		return id, nil
	case errors.As(err, &gerr) && gerr.Code == http.StatusConflict:
		c.logger.InfoContext(ctx, "Calendar entry already exists",
			log.FieldRecordID, e.ID, log.FieldCalendarRef, id)
		return id, nil
	default:
		return "", fmt.Errorf("insert calendar event %s: %w", e.ID, err)
	}
}

// IsPermanent reports whether err from InsertEvent will recur on retry.
func IsPermanent(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	switch gerr.Code {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return true
	default:
		return false
	}
}

// CalendarEventID derives a deterministic calendar id from a record id.
// Calendar ids only allow base32hex characters (0-9, a-v); ids outside that
// alphabet are hex encoded.
func CalendarEventID(recordID string) string {
	compact := strings.ToLower(strings.ReplaceAll(recordID, "-", ""))
	for _, r := range compact {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'v') {
			return eventIDPrefix + hex.EncodeToString([]byte(recordID))
		}
	}
	return eventIDPrefix + compact
}
