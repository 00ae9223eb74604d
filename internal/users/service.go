// Package users binds the users resource to the query cache, the mutation
// layer and the list store.
package users

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/roster/internal/api"
	"github.com/five82/roster/internal/logging"
	"github.com/five82/roster/internal/mutation"
	"github.com/five82/roster/internal/query"
	"github.com/five82/roster/internal/state"
)

const (
	DefaultListStaleTime = 5 * time.Minute
	DefaultItemStaleTime = 10 * time.Minute
)

// Options configure a Service.
type Options struct {
	ListStaleTime time.Duration
	ItemStaleTime time.Duration
	Logger        *slog.Logger
}

// UpdateInput is the payload of an update mutation.
type UpdateInput struct {
	ID     int64
	Fields api.UserFields
}

// Service is the users data layer. Reads go through the cache and are
// mirrored into the store; writes go through mutations that invalidate the
// cache and patch the store on success.
type Service struct {
	client api.UsersAPI
	cache  *query.Cache
	store  *state.Store
	opts   Options
	log    *slog.Logger

	create *mutation.Mutation[api.UserFields, api.User]
	update *mutation.Mutation[UpdateInput, api.User]
	remove *mutation.Mutation[int64, struct{}]

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

// New wires a Service and starts mirroring cache events into store.
// Call Close to stop.
func New(client api.UsersAPI, cache *query.Cache, store *state.Store, opts Options) *Service {
	if opts.ListStaleTime <= 0 {
		opts.ListStaleTime = DefaultListStaleTime
	}
	if opts.ItemStaleTime <= 0 {
		opts.ItemStaleTime = DefaultItemStaleTime
	}
	s := &Service{
		client: client,
		cache:  cache,
		store:  store,
		opts:   opts,
		log:    logging.OrNop(opts.Logger),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.create = mutation.New(func(ctx context.Context, in api.UserFields) (api.User, error) {
		return s.client.CreateUser(ctx, in)
	}, mutation.Options[api.UserFields, api.User]{
		Name:   "create user",
		Logger: s.log,
		OnSuccess: func(_ api.UserFields, created api.User) {
			s.invalidate(created.ID)
			s.store.Dispatch(state.AppendItem{Item: created})
		},
	})

	s.update = mutation.New(func(ctx context.Context, in UpdateInput) (api.User, error) {
		return s.client.UpdateUser(ctx, in.ID, in.Fields)
	}, mutation.Options[UpdateInput, api.User]{
		Name:   "update user",
		Logger: s.log,
		OnSuccess: func(in UpdateInput, updated api.User) {
			s.invalidate(in.ID)
			s.store.Dispatch(
				state.PatchItem{ID: in.ID, Fields: in.Fields},
				state.PatchItem{ID: in.ID, Fields: updated.Fields()},
			)
		},
	})

	s.remove = mutation.New(func(ctx context.Context, id int64) (struct{}, error) {
		return struct{}{}, s.client.DeleteUser(ctx, id)
	}, mutation.Options[int64, struct{}]{
		Name:      "delete user",
		Logger:    s.log,
		Exclusive: true,
		OnSuccess: func(id int64, _ struct{}) {
			s.invalidate(id)
			s.store.Dispatch(state.RemoveItem{ID: id})
		},
	})

	s.unsubscribe = cache.Subscribe(func(ev query.Event) {
		next := s.store.Update(func(cur state.ListState) []state.Action {
			return Sync(cur, ev)
		})
		if NeedsRefetch(next, ev) {
			go s.List(s.ctx, next.CurrentPage)
		}
	})
	return s
}

// Close stops mirroring cache events.
func (s *Service) Close() {
	s.cancel()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Store returns the list store.
func (s *Service) Store() *state.Store { return s.store }

func (s *Service) listQuery(page int) query.Query[api.UserPage] {
	return query.Query[api.UserPage]{
		Key: ListKey(page),
		Fn: func(ctx context.Context) (api.UserPage, error) {
			return s.client.ListUsers(ctx, page)
		},
		Options: query.Options{StaleTime: s.opts.ListStaleTime},
	}
}

// List fetches page through the cache.
func (s *Service) List(ctx context.Context, page int) query.Result[api.UserPage] {
	return query.Fetch(ctx, s.cache, s.listQuery(max(page, 1)))
}

// Current fetches the page on screen.
func (s *Service) Current(ctx context.Context) query.Result[api.UserPage] {
	return s.List(ctx, s.store.Snapshot().CurrentPage)
}

// Refetch bypasses the cache for the page on screen.
func (s *Service) Refetch(ctx context.Context) query.Result[api.UserPage] {
	page := s.store.Snapshot().CurrentPage
	return query.Refetch(ctx, s.cache, s.listQuery(page))
}

// GoToPage moves the list to page, clamped to the known page range, and
// fetches it.
func (s *Service) GoToPage(ctx context.Context, page int) query.Result[api.UserPage] {
	next := s.store.Update(func(cur state.ListState) []state.Action {
		target := min(max(page, 1), max(cur.TotalPages, 1))
		if target == cur.CurrentPage {
			return nil
		}
		actions := []state.Action{state.SetCurrentPage{Page: target}, state.SetError{}}
		if cached := query.Peek[api.UserPage](s.cache, ListKey(target), query.Options{}); cached.HasData {
			actions = append(actions, pageActions(cached.Data)...)
		}
		return actions
	})
	return s.List(ctx, next.CurrentPage)
}

// Search sets the client-side filter. It never fetches.
func (s *Service) Search(term string) state.ListState {
	return s.store.Dispatch(state.SetSearchTerm{Term: term})
}

// User fetches one record. Ids below 1 leave the query idle.
func (s *Service) User(ctx context.Context, id int64) query.Result[api.User] {
	return query.Fetch(ctx, s.cache, query.Query[api.User]{
		Key: UserKey(id),
		Fn: func(ctx context.Context) (api.User, error) {
			return s.client.GetUser(ctx, id)
		},
		Options: query.Options{
			StaleTime: s.opts.ItemStaleTime,
			Enabled:   func() bool { return id > 0 },
		},
	})
}

// Create adds a user.
func (s *Service) Create(ctx context.Context, fields api.UserFields, cb mutation.Callbacks[api.User]) (api.User, error) {
	return s.create.Mutate(ctx, fields, cb)
}

// Update changes the given fields of user id.
func (s *Service) Update(ctx context.Context, id int64, fields api.UserFields, cb mutation.Callbacks[api.User]) (api.User, error) {
	return s.update.Mutate(ctx, UpdateInput{ID: id, Fields: fields}, cb)
}

// Delete removes user id. While a delete is running further calls return
// mutation.ErrPending.
func (s *Service) Delete(ctx context.Context, id int64, cb mutation.Callbacks[struct{}]) error {
	_, err := s.remove.Mutate(ctx, id, cb)
	return err
}

// DeletePending reports whether a delete is in flight.
func (s *Service) DeletePending() bool { return s.remove.Pending() }

// Pending reports whether any write is in flight.
func (s *Service) Pending() bool {
	return s.create.Pending() || s.update.Pending() || s.remove.Pending()
}

func (s *Service) invalidate(id int64) {
	s.cache.Invalidate(ListPrefix())
	if id > 0 {
		s.cache.Invalidate(UserKey(id))
	}
}
