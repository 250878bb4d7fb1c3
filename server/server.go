package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/willmacd/dql-tetris/relay"
)

// watcherBuffer is how many frames a slow watcher may lag behind before
// frames are dropped for it.
const watcherBuffer = 16

const DefaultRetention = 30 * time.Minute

type session struct {
	id       string
	name     string
	started  time.Time
	updated  time.Time
	last     relay.Frame
	ended    bool
	watchers map[chan relay.Frame]struct{}
}

func newSession(name string, now time.Time) *session {
	return &session{
		id:       uuid.New().String(),
		name:     name,
		started:  now,
		updated:  now,
		watchers: make(map[chan relay.Frame]struct{}),
	}
}

// close ends the session and releases its watchers. Callers hold the lock.
func (s *session) close() {
	s.ended = true
	for ch := range s.watchers {
		close(ch)
		delete(s.watchers, ch)
	}
}

// SessionInfo is what the HTTP API lists.
type SessionInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Lines    int       `json:"lines"`
	GameOver bool      `json:"game_over"`
	Ended    bool      `json:"ended"`
	Started  time.Time `json:"started"`
	Updated  time.Time `json:"updated"`
}

// Relay keeps the games being published and fans their frames out to
// watchers. Ended games are dropped once they are older than the retention.
type Relay struct {
	sessions  map[string]*session
	latestID  string
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
	mu        sync.Mutex
}

// New returns an empty relay. A retention of zero means DefaultRetention.
func New(l *slog.Logger, retention time.Duration) *Relay {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Relay{
		sessions:  make(map[string]*session),
		retention: retention,
		now:       time.Now,
		logger:    l,
	}
}

var _ relay.RelayServer = (*Relay)(nil)

func (r *Relay) Publish(stream grpc.ClientStreamingServer[structpb.Struct, structpb.Struct]) error {
	var s *session
	defer func() {
		if s == nil {
			return
		}
		r.mu.Lock()
		s.close()
		r.mu.Unlock()
		r.logger.Info("session ended", slog.String("session", s.id), slog.String("name", s.name))
	}()

	for {
		rcv, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if s == nil {
					return status.Error(codes.InvalidArgument, "no frames published")
				}
				return stream.SendAndClose(relay.SessionResponse(s.id))
			}
			return fmt.Errorf("failed to receive Publish frame: %w", err)
		}
		f, err := relay.FrameFromStruct(rcv)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		if s == nil {
			s = r.open(f.Name)
		}
		f.SessionID = s.id
		r.broadcast(s, f)
	}
}

func (r *Relay) open(name string) *session {
	r.mu.Lock()
	r.evict()
	s := newSession(name, r.now())
	r.sessions[s.id] = s
	r.latestID = s.id
	r.mu.Unlock()
	r.logger.Info("session opened", slog.String("session", s.id), slog.String("name", name))
	return s
}

func (r *Relay) broadcast(s *session, f relay.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.last = f
	s.updated = r.now()
	for ch := range s.watchers {
		select {
		case ch <- f:
		default:
			r.logger.Debug("frame dropped for slow watcher", slog.String("session", s.id))
		}
	}
}

func (r *Relay) Watch(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	id, ch, last, err := r.subscribe(relay.SessionID(req))
	if err != nil {
		return err
	}
	defer r.unsubscribe(id, ch)

	if err := send(stream, last); err != nil {
		return err
	}
	ctx := stream.Context()
	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return nil
			}
			if err := send(stream, f); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func send(stream grpc.ServerStreamingServer[structpb.Struct], f relay.Frame) error {
	msg, err := f.Struct()
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	if err := stream.Send(msg); err != nil {
		return fmt.Errorf("failed to send Watch frame: %w", err)
	}
	return nil
}

// subscribe registers a watcher on the session. The returned channel is
// closed when the session ends; for an ended session it is closed already.
func (r *Relay) subscribe(id string) (string, chan relay.Frame, relay.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		id = r.latestID
	}
	s, ok := r.sessions[id]
	if !ok {
		return "", nil, relay.Frame{}, status.Errorf(codes.NotFound, "session %q not found", id)
	}
	ch := make(chan relay.Frame, watcherBuffer)
	if s.ended {
		close(ch)
	} else {
		s.watchers[ch] = struct{}{}
	}
	return id, ch, s.last, nil
}

// evict drops the ended sessions not updated within the retention. Callers
// hold the lock.
func (r *Relay) evict() {
	cutoff := r.now().Add(-r.retention)
	for id, s := range r.sessions {
		if s.ended && s.updated.Before(cutoff) {
			delete(r.sessions, id)
			if r.latestID == id {
				r.latestID = ""
			}
			r.logger.Debug("session evicted", slog.String("session", id))
		}
	}
}

func (r *Relay) unsubscribe(id string, ch chan relay.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		delete(s.watchers, ch)
	}
}

// Sessions lists every known session, most recently updated first.
func (r *Relay) Sessions() []SessionInfo {
	r.mu.Lock()
	r.evict()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, info(s))
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b SessionInfo) int { return b.Updated.Compare(a.Updated) })
	return out
}

// Frame returns the last frame of a session.
func (r *Relay) Frame(id string) (relay.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return relay.Frame{}, false
	}
	return s.last, true
}

func info(s *session) SessionInfo {
	return SessionInfo{
		ID:       s.id,
		Name:     s.name,
		Score:    s.last.Score,
		Lines:    s.last.Lines,
		GameOver: s.last.GameOver,
		Ended:    s.ended,
		Started:  s.started,
		Updated:  s.updated,
	}
}
