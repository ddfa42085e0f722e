package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/calsheet/internal/google"
	"github.com/teemow/calsheet/internal/instrumentation"
	"github.com/teemow/calsheet/internal/logging"
	"github.com/teemow/calsheet/internal/orchestrator"
	"github.com/teemow/calsheet/internal/timesheet"
)

var _ orchestrator.CalendarService = (*Client)(nil)

// Options configures a Client.
type Options struct {
	// Account selects the stored token. Empty means google.DefaultAccount.
	Account string
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	// ClientOptions are appended when the API service is built, e.g.
	// option.WithEndpoint in tests.
	ClientOptions []option.ClientOption
}

// Client wraps the Google Calendar service
type Client struct {
	tokenProvider google.TokenProvider
	account       string
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
	clientOptions []option.ClientOption

	mu  sync.Mutex
	svc *calendar.Service
}

// NewClient creates a Calendar client. The API service is built on first use
// from the token stored for the account.
func NewClient(tokenProvider google.TokenProvider, opts Options) *Client {
	if opts.Account == "" {
		opts.Account = google.DefaultAccount
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = &instrumentation.Metrics{}
	}

	return &Client{
		tokenProvider: tokenProvider,
		account:       opts.Account,
		logger:        logging.WithService(opts.Logger, instrumentation.ServiceCalendar),
		metrics:       opts.Metrics,
		clientOptions: opts.ClientOptions,
	}
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// service returns the cached API service, building it when needed.
func (c *Client) service(ctx context.Context) (*calendar.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svc != nil {
		return c.svc, nil
	}
	if c.tokenProvider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	// The token source refreshes with this context long after the call that
	// built it has returned.
	base := context.WithoutCancel(ctx)

	tokenSource, err := c.tokenProvider.TokenSourceForAccount(base, c.account)
	if err != nil {
		if errors.Is(err, google.ErrNoToken) {
			return nil, fmt.Errorf("%w: %v", timesheet.ErrAuthFailure, err)
		}
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", c.account, err)
	}

	client := oauth2.NewClient(base, tokenSource)

	// Force HTTP/1.1 by disabling HTTP/2
	transport := client.Transport.(*oauth2.Transport)
	transport.Base = &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, c.clientOptions...)
	svc, err := calendar.NewService(base, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	c.svc = svc
	c.logger.Debug("Created Google Calendar service", logging.Account(c.account))
	return svc, nil
}

// invalidate drops the cached service so the next call reloads the token.
func (c *Client) invalidate() {
	c.mu.Lock()
	c.svc = nil
	c.mu.Unlock()
}

// do runs fn against the service inside a span and records the outcome.
func (c *Client) do(ctx context.Context, operation string, attrs []attribute.KeyValue, fn func(context.Context, *calendar.Service) error) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, operation, attrs...)
	defer span.End()

	start := time.Now()
	svc, err := c.service(ctx)
	if err == nil {
		err = classify(fn(ctx, svc))
	}
	duration := time.Since(start)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		if timesheet.IsAuthFailure(err) {
			c.invalidate()
		}
		c.logger.Debug("Google Calendar call failed",
			logging.Operation(operation),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, operation, status, duration)

	return err
}

// classify maps a rejected credential to timesheet.ErrAuthFailure.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", timesheet.ErrAuthFailure, err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: token refresh failed: %v", timesheet.ErrAuthFailure, err)
	}

	return err
}

// ResolvePrimaryCalendar returns the id of the calendar flagged primary in
// the user's calendar list.
func (c *Client) ResolvePrimaryCalendar(ctx context.Context) (string, error) {
	var id string
	err := c.do(ctx, opListCalendars, nil, func(ctx context.Context, svc *calendar.Service) error {
		var entries []*calendar.CalendarListEntry
		err := svc.CalendarList.List().Pages(ctx, func(list *calendar.CalendarList) error {
			entries = append(entries, list.Items...)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to list calendars: %w", err)
		}

		var ok bool
		if id, ok = primaryCalendarID(entries); !ok {
			return timesheet.ErrNoPrimaryCalendar
		}
		return nil
	})
	return id, err
}

// FetchColors returns the event color palette.
func (c *Client) FetchColors(ctx context.Context) (timesheet.EventColors, error) {
	var colors timesheet.EventColors
	err := c.do(ctx, opColors, nil, func(ctx context.Context, svc *calendar.Service) error {
		res, err := svc.Colors.Get().Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to get colors: %w", err)
		}
		colors = toEventColors(res)
		return nil
	})
	return colors, err
}

// FetchEvents lists the single events of a calendar inside window, expanding
// recurring events and ordering by start time.
func (c *Client) FetchEvents(ctx context.Context, calendarID string, window timesheet.WeekWindow) ([]timesheet.RawEvent, error) {
	timeMin := window.Start.Format(time.RFC3339)
	timeMax := window.End.Format(time.RFC3339)
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithCalendar(calendarID).
		WithWindow(timeMin, timeMax).
		Build()

	var events []timesheet.RawEvent
	err := c.do(ctx, opListEvents, attrs, func(ctx context.Context, svc *calendar.Service) error {
		call := svc.Events.List(calendarID).
			TimeMin(timeMin).
			TimeMax(timeMax).
			SingleEvents(true).
			OrderBy("startTime")

		err := call.Pages(ctx, func(page *calendar.Events) error {
			for _, event := range page.Items {
				events = append(events, toRawEvent(event))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Listed events", logging.CalendarID(calendarID), slog.Int("count", len(events)))
	return events, nil
}

// CreateEvent inserts an event titled name.
func (c *Client) CreateEvent(ctx context.Context, calendarID, name string, start, end time.Time) error {
	attrs := instrumentation.NewSpanAttributeBuilder().WithCalendar(calendarID).Build()

	return c.do(ctx, opCreate, attrs, func(ctx context.Context, svc *calendar.Service) error {
		event := &calendar.Event{
			Summary: name,
			Start:   eventDateTime(start),
			End:     eventDateTime(end),
		}
		if _, err := svc.Events.Insert(calendarID, event).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}
		return nil
	})
}

// PatchEventColor sets the colorId of one event, leaving every other field
// untouched.
func (c *Client) PatchEventColor(ctx context.Context, calendarID, eventID, colorTag string) error {
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithCalendar(calendarID).
		WithEvent(eventID).
		WithColor(colorTag).
		Build()

	return c.do(ctx, opPatch, attrs, func(ctx context.Context, svc *calendar.Service) error {
		patch := &calendar.Event{ColorId: colorTag}
		if _, err := svc.Events.Patch(calendarID, eventID, patch).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to patch event color: %w", err)
		}
		return nil
	})
}

func eventDateTime(t time.Time) *calendar.EventDateTime {
	dt := &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
	if name := t.Location().String(); name != "Local" {
		dt.TimeZone = name
	}
	return dt
}
