package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
)

// ErrUnknownSource is returned for messages from a transport that is not configured
var ErrUnknownSource = errors.New("unknown message source")

// chatRouter dispatches ChatRepo calls to the transport a message came from
type chatRouter struct {
	repos    map[string]repo.ChatRepo
	fallback repo.ChatRepo
}

// NewChatRouter combines per-platform repositories into one.
// The first repository also serves GetChatInfo, which carries no source.
func NewChatRouter(repos ...repo.ChatRepo) repo.ChatRepo {
	r := &chatRouter{repos: make(map[string]repo.ChatRepo, len(repos))}
	for _, cr := range repos {
		if cr == nil {
			continue
		}
		if r.fallback == nil {
			r.fallback = cr
		}
		r.repos[cr.Source()] = cr
	}
	return r
}

func (r *chatRouter) Source() string {
	return "router"
}

func (r *chatRouter) route(source string) (repo.ChatRepo, error) {
	if cr, ok := r.repos[source]; ok {
		return cr, nil
	}
	if source == "" && r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, source)
}

func (r *chatRouter) Resolve(ctx context.Context, msg *domain.ChatMessage) error {
	cr, err := r.route(msg.Source)
	if err != nil {
		return err
	}
	return cr.Resolve(ctx, msg)
}

func (r *chatRouter) GetChatInfo(ctx context.Context, chatID string) (*domain.ChatInfo, error) {
	if r.fallback == nil {
		return nil, ErrUnknownSource
	}
	return r.fallback.GetChatInfo(ctx, chatID)
}

func (r *chatRouter) DownloadMedia(ctx context.Context, msg *domain.ChatMessage) ([]byte, error) {
	cr, err := r.route(msg.Source)
	if err != nil {
		return nil, err
	}
	return cr.DownloadMedia(ctx, msg)
}

func (r *chatRouter) Reply(ctx context.Context, msg *domain.ChatMessage, text string) error {
	cr, err := r.route(msg.Source)
	if err != nil {
		return err
	}
	return cr.Reply(ctx, msg, text)
}

// Ping pings every transport and joins the failures
func (r *chatRouter) Ping(ctx context.Context) error {
	var errs []error
	for source, cr := range r.repos {
		if err := cr.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", source, err))
		}
	}
	return errors.Join(errs...)
}
